package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength длина кодов выдачи и сдачи вещи.
const CodeLength = 8

// GenerateCode возвращает случайный код из заглавных букв и цифр.
// Используется для surrender-кодов найденных вещей и кодов выдачи.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))

	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("code: random source %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	return string(buf), nil
}
