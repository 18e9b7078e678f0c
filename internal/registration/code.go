package registration

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// generateCode returns a zero-padded six digit code drawn from r.
func generateCode(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
