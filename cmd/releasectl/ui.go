package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

func newSpinner(w io.Writer, message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	return s
}

// verdictLine colors the recommendation: buy green, hold yellow, sell red.
func verdictLine(score int, recommendation, model string) string {
	paint := color.New(color.Bold)
	switch recommendation {
	case "COMPRA":
		paint = color.New(color.FgGreen, color.Bold)
	case "MANTER":
		paint = color.New(color.FgYellow, color.Bold)
	case "VENDA":
		paint = color.New(color.FgRed, color.Bold)
	}
	return fmt.Sprintf("Nota %d/10 %s (%s)", score, paint.Sprint(recommendation), model)
}

func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.CyanString("i"), fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.YellowString("!"), fmt.Sprintf(format, args...))
}

// readSecret reads without echo when in is a terminal.
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}
