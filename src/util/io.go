package util

import (
	"bufio"
	"errors"
	"io"
	"os"
	"time"
)

// ReadSource reads the program text named by opt.Src, or, if opt.Code is set, treats opt.Src itself as inline
// source text (the -c flag). With no positional argument at all it waits briefly for input on stdin, the same
// short grace period the teacher's own ReadSource gives an interactive caller before giving up.
func ReadSource(opt Options) (string, error) {
	if opt.Code {
		return opt.Src, nil
	}
	if len(opt.Src) > 0 {
		b, err := os.ReadFile(opt.Src)
		return string(b), err
	}

	c := make(chan string)
	cerr := make(chan error)
	go func(c chan string, cerr chan error) {
		defer close(c)
		defer close(cerr)
		reader := bufio.NewReader(os.Stdin)
		text, err := reader.ReadString(0)
		if err == nil || errors.Is(err, io.EOF) {
			c <- text
		} else {
			cerr <- err
		}
	}(c, cerr)

	select {
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("expected input from stdin, got none")
	case err := <-cerr:
		return "", err
	case s := <-c:
		return s, nil
	}
}
