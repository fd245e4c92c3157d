package credentials

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// InvitePrefix makes invitation codes recognisable when read aloud or typed.
const InvitePrefix = "FAM-"

// InviteCodeLength is the number of random symbols after the prefix.
const InviteCodeLength = 8

const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var inviteCodeRegexp = regexp.MustCompile(`^FAM-[A-Z0-9]{8}$`)

// Word lists for suggesting child-friendly usernames
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "swift", "clever", "jolly", "mighty",
	"lucky", "magic", "bouncy", "cheerful", "daring", "gentle", "merry", "quick",
	"cosmic", "curious", "epic", "groovy", "kind", "playful", "sparkly", "zippy",
}

var nouns = []string{
	"dragon", "tiger", "dolphin", "panda", "fox", "owl", "rocket", "wizard",
	"explorer", "comet", "painter", "scientist", "builder", "gardener", "runner", "inventor",
	"astronaut", "ranger", "helper", "reader", "drummer", "sailor", "penguin", "otter",
}

// GenerateInviteCode returns a fresh code such as FAM-7Q2XK9LD drawn from
// crypto/rand. 36^8 possibilities keep collisions negligible.
func GenerateInviteCode() (string, error) {
	code, err := randomString(inviteAlphabet, InviteCodeLength)
	if err != nil {
		return "", err
	}
	return InvitePrefix + code, nil
}

// NormalizeInviteCode upper-cases and trims user input.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsInviteCode reports whether code has the invitation format.
func IsInviteCode(code string) bool {
	return inviteCodeRegexp.MatchString(code)
}

// SuggestUsername generates a random username in the format "adjective-noun"
func SuggestUsername() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	return adjective + "-" + noun, nil
}

func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[num.Int64()]
	}
	return string(out), nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
