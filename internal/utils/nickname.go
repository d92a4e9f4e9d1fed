package utils

import (
	"fmt"
	"math/rand"
)

var (
	nicknameAdjectives = []string{"clever", "jolly", "jumping", "brave", "flying", "gentle", "dancing"}
	nicknameNouns      = []string{"panda", "fox", "tiger", "dolphin", "dragon", "lion", "eagle", "whale"}
)

// GenerateNickname composes a random URL-safe handle of the form
// {adjective}{sep}{noun}{sep}{3-digit-number}. The result always satisfies
// the nickname format, but is not guaranteed unique; callers must check
// against the store and retry on collision.
func GenerateNickname(separator string) string {
	adjective := nicknameAdjectives[rand.Intn(len(nicknameAdjectives))]
	noun := nicknameNouns[rand.Intn(len(nicknameNouns))]
	number := 100 + rand.Intn(900)
	return fmt.Sprintf("%s%s%s%s%d", adjective, separator, noun, separator, number)
}
