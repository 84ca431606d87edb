//go:build ignore

// generate_hash.go — утилита для генерации Argon2id хеша пароля консоли модераторов.
// Запуск: go run scripts/generate_hash.go ваш_пароль
//
// Результат вставьте в .env как ADMIN_PASSWORD_HASH.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/crypto/argon2"
)

func main() {
	memory := flag.Uint32("memory", 64*1024, "память в КБ")
	iterations := flag.Uint32("iterations", 3, "число проходов")
	parallelism := flag.Uint8("parallelism", 2, "число потоков")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Использование: go run scripts/generate_hash.go [--memory N] [--iterations N] [--parallelism N] <пароль>")
		os.Exit(1)
	}
	password := flag.Arg(0)

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		fmt.Printf("Ошибка генерации соли: %v\n", err)
		os.Exit(1)
	}

	hash := argon2.IDKey([]byte(password), salt, *iterations, *memory, *parallelism, 32)

	fmt.Println("Хеш пароля (вставьте в .env как ADMIN_PASSWORD_HASH):")
	fmt.Printf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s\n",
		argon2.Version, *memory, *iterations, *parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}
