package wxpay

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"io"
	"math/big"
	"sort"
	"strings"
)

// Params 微信支付键值参数
type Params map[string]string

// Sign MD5 签名: 按 key 排序拼接非空参数，追加 &key=密钥 后取大写 MD5
func Sign(params Params, apiKey string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(params[k])
	}
	buf.WriteString("&key=")
	buf.WriteString(apiKey)

	sum := md5.Sum([]byte(buf.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Verify 校验 sign 字段
func Verify(params Params, apiKey string) bool {
	sign, ok := params["sign"]
	if !ok || sign == "" {
		return false
	}
	return Sign(params, apiKey) == sign
}

// EncodeXML 编码为 <xml> 报文，值用 CDATA 包裹
func EncodeXML(params Params) []byte {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("<xml>")
	for _, k := range keys {
		buf.WriteString("<" + k + "><![CDATA[" + params[k] + "]]></" + k + ">")
	}
	buf.WriteString("</xml>")
	return buf.Bytes()
}

// DecodeXML 解析一级 <xml> 报文
func DecodeXML(data []byte) (Params, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	params := Params{}

	var (
		depth   int
		current string
		text    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				current = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				params[current] = strings.TrimSpace(text.String())
			}
			depth--
		}
	}

	if len(params) == 0 {
		return nil, errors.New("空的 XML 报文")
	}
	return params, nil
}

const nonceChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NonceStr 生成随机串
func NonceStr(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(nonceChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = nonceChars[i%len(nonceChars)]
			continue
		}
		b[i] = nonceChars[idx.Int64()]
	}
	return string(b)
}

// SuccessReply 回调成功应答
func SuccessReply() []byte {
	return EncodeXML(Params{"return_code": "SUCCESS", "return_msg": "OK"})
}

// FailReply 回调失败应答
func FailReply(msg string) []byte {
	return EncodeXML(Params{"return_code": "FAIL", "return_msg": msg})
}
