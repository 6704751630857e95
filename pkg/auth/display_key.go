package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DisplayKey 大屏展示密钥
// 明文只存在于 TV 端的启动 URL 里，配置文件只下发 bcrypt 哈希。
type DisplayKey struct {
	TenantID string
	Hash     string
}

// DisplayKeyVerifier 校验大屏密钥并解析所属租户
type DisplayKeyVerifier struct {
	keys []DisplayKey
}

// NewDisplayKeyVerifier 创建校验器
func NewDisplayKeyVerifier(keys []DisplayKey) *DisplayKeyVerifier {
	return &DisplayKeyVerifier{keys: keys}
}

// HasKeys 是否配置了任何密钥
func (v *DisplayKeyVerifier) HasKeys() bool {
	return v != nil && len(v.keys) > 0
}

// Lookup 返回密钥所属租户
// 大屏数量有限，逐个 bcrypt 比对可接受。
func (v *DisplayKeyVerifier) Lookup(key string) (string, bool) {
	if v == nil || key == "" {
		return "", false
	}
	for _, k := range v.keys {
		if bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(key)) == nil {
			return k.TenantID, true
		}
	}
	return "", false
}

// HashDisplayKey 生成可写入配置文件的密钥哈希
func HashDisplayKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("display key cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash display key: %w", err)
	}
	return string(hash), nil
}
