package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderNumber(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 45, 0, time.Local)
	no := OrderNumber(now)
	assert.Regexp(t, regexp.MustCompile(`^ORD20240501123045\d{4}$`), no)
}

func TestOutTradeNo(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Regexp(t, regexp.MustCompile(`^PAY1700000000\d{4}$`), OutTradeNo(now))
}

func TestTransactionID(t *testing.T) {
	id := TransactionID()
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{20}$`), id)
}

func TestRandomInt_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		n := RandomInt(1000, 9999)
		assert.GreaterOrEqual(t, n, int64(1000))
		assert.LessOrEqual(t, n, int64(9999))
	}
}
