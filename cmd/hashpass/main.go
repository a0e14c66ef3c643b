// Package main печатает Argon2id-хеш пароля для ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hashpass 'secret'
package main

import (
	"fmt"
	"os"

	"serotonyl.ru/invest-platform/internal/features/admin"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: hashpass <password>")
		os.Exit(1)
	}
	hash, err := admin.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
