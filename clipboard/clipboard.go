// Package clipboard copies text to the system clipboard.
package clipboard

import cb "github.com/atotto/clipboard"

// Copy places text on the system clipboard. On Linux this shells out
// to xclip or xsel, one of which must be installed.
func Copy(text string) error {
	return cb.WriteAll(text)
}
