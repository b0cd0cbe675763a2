package ui

import (
	"fmt"
	"os"

	"github.com/safedep/cage/usefulerror"
)

// ErrorExit prints the error message and exits the program with a non-zero status code.
func ErrorExit(err error) {
	usefulErr, ok := usefulerror.AsUsefulError(err)
	if !ok {
		Fatalf("Error: %s", err)
	}

	fmt.Println(Colors.Red("Error occurred: %s", usefulErr.HumanError()))
	fmt.Println(Colors.Yellow("%s", usefulErr.Help()))

	os.Exit(1)
}

// Fatalf prints a formatted message and exits with a non-zero status code.
func Fatalf(format string, args ...interface{}) {
	fmt.Println(Colors.Red("%s", fmt.Sprintf(format, args...)))
	os.Exit(1)
}
