package memory

import "errors"

var (
	errDuplicateKey = errors.New("memory: duplicate key")
	errForeignKey   = errors.New("memory: referenced request does not exist")
)
