package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const upperDigits = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString 从 charset 中随机取 length 个字符
func RandomString(length int, charset string) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = charset[(i*7)%len(charset)]
			continue
		}
		b[i] = charset[n.Int64()]
	}
	return string(b)
}

// RandomInt 返回 [min, max] 区间随机数
func RandomInt(min, max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return min
	}
	return min + n.Int64()
}

// OrderNumber 订单号: ORD + 年月日时分秒 + 4 位随机数
func OrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%s%d", now.Format("20060102150405"), RandomInt(1000, 9999))
}

// OutTradeNo 商户支付单号: PAY + Unix 秒 + 4 位随机数
func OutTradeNo(now time.Time) string {
	return fmt.Sprintf("PAY%d%d", now.Unix(), RandomInt(1000, 9999))
}

// TransactionID 20 位大写字母数字交易号
func TransactionID() string {
	return RandomString(20, upperDigits)
}
