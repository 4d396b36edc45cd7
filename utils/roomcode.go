package utils

import "math/rand"

const codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ルームコードの長さ。人が手入力するので短くしています。
const codeLength = 6

// GenerateRoomCode は合言葉になる6文字の英数字コードを生成します。
func GenerateRoomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeLetters[rand.Intn(len(codeLetters))]
	}
	return string(b)
}
