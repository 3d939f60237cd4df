// tokens реализует самоописываемые зашифрованные токены с опциональным
// сроком жизни. Используются как state (return URL на время OAuth-раунда)
// и как session (access token на год) вместо серверного хранилища сессий.
//
// Формат:
//
//	token = base64url-nopad(nonce[12] || AES-256-GCM(json{"data","expiry"?}))
//	key   = PBKDF2-HMAC-SHA256(secret, "agora-oauth-salt", 100000, 32)
//
// expiry — миллисекунды Unix; отсутствие поля означает бессрочный токен.
package tokens

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/pribylovaa/agora/internal/models"
)

const (
	keySalt       = "agora-oauth-salt"
	keyIterations = 100_000
	keyLen        = 32
	nonceLen      = 12
)

var (
	// ErrInvalid — общий наружный признак «невалидный или истёкший токен».
	ErrInvalid = fmt.Errorf("tokens: %w", models.ErrToken)
	// ErrDecryption — битый base64, короткий вход, провал аутентификации GCM или JSON.
	ErrDecryption = errors.New("decryption failed")
	// ErrExpired — токен расшифрован, но срок истёк.
	ErrExpired = errors.New("token expired")
)

var b64 = base64.RawURLEncoding

type envelope struct {
	Data   string `json:"data"`
	Expiry *int64 `json:"expiry,omitempty"`
}

// Codec шифрует и расшифровывает токены одним ключом.
// Ключ выводится один раз при создании; Codec безопасен для конкурентного использования.
type Codec struct {
	aead cipher.AEAD
	now  func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New выводит ключ из секрета. Пустой секрет — ошибка конфигурации.
func New(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("tokens: empty secret: %w", models.ErrConfiguration)
	}

	key := pbkdf2.Key([]byte(secret), []byte(keySalt), keyIterations, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("tokens: cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("tokens: gcm: %w", err)
	}

	c := &Codec{aead: aead, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Encode запечатывает payload. Нулевой expiry — токен без срока.
// Каждый вызов использует свежий случайный nonce.
func (c *Codec) Encode(payload string, expiry time.Time) (string, error) {
	env := envelope{Data: payload}
	if !expiry.IsZero() {
		ms := expiry.UnixMilli()
		env.Expiry = &ms
	}

	plaintext, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("tokens: marshal: %w", err)
	}

	nonce := make([]byte, nonceLen, nonceLen+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("tokens: nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return b64.EncodeToString(sealed), nil
}

// Decode возвращает payload. Ошибки оборачивают ErrInvalid и одну из
// ErrDecryption / ErrExpired; срок проверяется только после успешной расшифровки.
func (c *Codec) Decode(token string) (string, error) {
	raw, err := b64.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalid, ErrDecryption)
	}

	if len(raw) < nonceLen+c.aead.Overhead() {
		return "", fmt.Errorf("%w: %w", ErrInvalid, ErrDecryption)
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceLen], raw[nonceLen:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalid, ErrDecryption)
	}

	var env envelope
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalid, ErrDecryption)
	}

	if env.Expiry != nil && c.now().UnixMilli() > *env.Expiry {
		return "", fmt.Errorf("%w: %w", ErrInvalid, ErrExpired)
	}

	return env.Data, nil
}

// Reason — короткая метка причины отказа для логов и метрик.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrDecryption):
		return "decryption"
	default:
		return "other"
	}
}

// Encode — разовое шифрование без переиспользования ключа.
func Encode(payload, secret string, expiry time.Time) (string, error) {
	c, err := New(secret)
	if err != nil {
		return "", err
	}

	return c.Encode(payload, expiry)
}

// Decode — разовая расшифровка без переиспользования ключа.
func Decode(token, secret string) (string, error) {
	c, err := New(secret)
	if err != nil {
		return "", err
	}

	return c.Decode(token)
}
