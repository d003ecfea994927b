package notification

import (
	"fmt"
	"log"
	"os"
)

// ShowBlockingError reports a fatal startup problem and returns once the
// user has seen it. On Windows this is a message box, elsewhere stderr.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
	fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
	showBlocking(title, message)
}
