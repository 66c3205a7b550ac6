package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowLoginGuide explains the QR login the `login` command is about to
// start. The scan has to happen within timeout.
func ShowLoginGuide(w io.Writer, store CookieStore, timeout string) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "XIAOHONGSHU CREATOR STUDIO LOGIN")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. A browser window opens on the creator studio.")
	fmt.Fprintln(w, "2. If no saved session is valid, the QR code login is opened for you.")
	fmt.Fprintln(w, "3. Open the Xiaohongshu app on your phone and scan the code.")
	fmt.Fprintf(w, "   You have %s to complete the scan.\n", timeout)
	fmt.Fprintf(w, "4. The session is then saved to %s.\n", store.Location())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The saved cookies give full access to the account. Keep them private,")
	fmt.Fprintln(w, "or use the keyring / encrypted credential backend.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
