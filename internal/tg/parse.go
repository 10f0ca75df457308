package tg

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/pvzzle/posledger/internal/amount"
)

var (
	reTxHash = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)

	ErrBadCommand = errors.New("usage: /confirm <id> <tx hash>")
)

func IsTxHash(s string) bool {
	s = strings.TrimSpace(s)
	return reTxHash.MatchString(s)
}

// ParseMinAmount reads a notification threshold in ADA. "0" and "all"
// mean every confirmation.
func ParseMinAmount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "0" || s == "all" {
		return 0, nil
	}
	return amount.ParseAda(s)
}

// ParseConfirmCommand parses "/confirm <id> <hash>".
func ParseConfirmCommand(text string) (int64, string, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 || fields[0] != "/confirm" {
		return 0, "", ErrBadCommand
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrBadCommand
	}
	if !IsTxHash(fields[2]) {
		return 0, "", ErrBadCommand
	}
	return id, fields[2], nil
}
