package types

import (
	"strings"

	"github.com/google/uuid"
)

// idNamespace 派生 ID 的命名空间，保证相同输入在任意进程得到相同 UUID
var idNamespace = uuid.MustParse("6f3c2d1e-8a4b-5c7d-9e0f-a1b2c3d4e5f6")

// StringToUUID 将任意字符串确定性地映射为 UUID（SHA-1 命名空间 UUID）
func StringToUUID(target string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(target))
}

// ValidateUUID 解析字符串形式的 UUID，无效输入返回 uuid.Nil 和 false
func ValidateUUID(value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
