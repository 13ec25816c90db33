package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultKeyBytesLen = 32

// Prints random key to use as SECRET_KEY of the credential store
func main() {
	fs := pflag.NewFlagSet("gensecret", pflag.ExitOnError)
	size := fs.IntP("bytes", "n", defaultKeyBytesLen, "Key length in bytes")
	format := fs.StringP("format", "f", "hex", "Output format (hex, base64)")
	_ = fs.Parse(os.Args[1:])

	key, err := generate(*size, *format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(key)
}

func generate(size int, format string) (string, error) {
	if size < 16 {
		return "", fmt.Errorf("key must be at least 16 bytes, got %d", size)
	}

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	switch format {
	case "hex":
		return hex.EncodeToString(b), nil
	case "base64":
		return base64.RawURLEncoding.EncodeToString(b), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}
