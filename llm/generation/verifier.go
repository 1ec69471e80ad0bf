package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BaSui01/agentcore/types"
	"github.com/golang-jwt/jwt/v5"
)

// VerifiableResult 带证明的生成结果
type VerifiableResult struct {
	Text       string           `json:"text"`
	Proof      string           `json:"proof"`
	ModelClass types.ModelClass `json:"modelClass"`
	Context    string           `json:"-"`
	Timestamp  int64            `json:"timestamp"`
}

// Verifier 可验证推理：为一次生成签发证明，并能事后校验
type Verifier interface {
	Attest(ctx context.Context, class types.ModelClass, prompt, output string) (string, error)
	VerifyProof(ctx context.Context, result *VerifiableResult) (bool, error)
}

// InferenceClaims 证明中携带的声明
type InferenceClaims struct {
	ModelClass  string `json:"model_class"`
	ContextHash string `json:"context_hash"`
	OutputHash  string `json:"output_hash"`
	jwt.RegisteredClaims
}

// HMACVerifier 使用 HS256 JWT 作为推理证明
type HMACVerifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewHMACVerifier 创建 HMAC 证明器。ttl <= 0 表示证明不过期。
func NewHMACVerifier(secret []byte, issuer string, ttl time.Duration) (*HMACVerifier, error) {
	if len(secret) < 16 {
		return nil, types.NewError(types.ErrConfiguration, "verifiable inference secret must be at least 16 bytes")
	}
	if issuer == "" {
		issuer = "agentcore"
	}
	return &HMACVerifier{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Attest 签发证明，绑定模型等级、上下文摘要与输出摘要
func (v *HMACVerifier) Attest(_ context.Context, class types.ModelClass, prompt, output string) (string, error) {
	now := v.now()
	claims := InferenceClaims{
		ModelClass:  string(class),
		ContextHash: digest(prompt),
		OutputHash:  digest(output),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   v.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if v.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(v.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign inference proof: %w", err)
	}
	return signed, nil
}

// VerifyProof 校验签名并重新计算摘要。签名无效或摘要不符时返回 false。
func (v *HMACVerifier) VerifyProof(_ context.Context, result *VerifiableResult) (bool, error) {
	if result == nil || result.Proof == "" {
		return false, types.NewError(types.ErrInvalidInput, "missing proof")
	}
	var claims InferenceClaims
	token, err := jwt.ParseWithClaims(result.Proof, &claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !token.Valid {
		return false, nil
	}
	if claims.ModelClass != string(result.ModelClass) {
		return false, nil
	}
	if claims.OutputHash != digest(result.Text) {
		return false, nil
	}
	if result.Context != "" && claims.ContextHash != digest(result.Context) {
		return false, nil
	}
	return true, nil
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
