package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/amazonclient"
	"github.com/buffapp/amazon-ads-api/infrastructure/repository"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Mesmo sal e custo usados desde a primeira versão do vault; mudar
	// qualquer um deles invalida todos os envelopes já emitidos
	keySalt       = "buff_amazon_ads_integration"
	keyIterations = 100000
	keyLength     = 32

	// Margem antes da expiração real para renovar proativamente
	refreshMargin = time.Minute
)

// Vault criptografa e descriptografa tokens OAuth e mantém o access token
// de cada conexão renovado. Envelopes carregam a versão da chave para
// permitir rotação: chaves aposentadas continuam abrindo envelopes antigos
// até serem removidas da configuração
type Vault struct {
	keys           map[int][]byte
	currentVersion int

	client   amazonclient.Client
	connRepo repository.ConnectionRepository

	// Um mutex por conexão: no máximo um refresh em voo por conexão,
	// demais chamadores aguardam e reaproveitam o token renovado
	refreshLocks sync.Map
}

func New(cfg config.Vault, client amazonclient.Client, connRepo repository.ConnectionRepository) (*Vault, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key do vault não pode ser vazia")
	}

	keys := map[int][]byte{
		cfg.KeyVersion: deriveKey(cfg.SecretKey),
	}

	for _, entry := range cfg.RetiredKeys {
		if entry == "" {
			continue
		}
		version, secret, err := parseRetiredKey(entry)
		if err != nil {
			return nil, err
		}
		keys[version] = deriveKey(secret)
	}

	return &Vault{
		keys:           keys,
		currentVersion: cfg.KeyVersion,
		client:         client,
		connRepo:       connRepo,
	}, nil
}

// deriveKey deriva a chave AES-256 a partir do segredo configurado
func deriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), []byte(keySalt), keyIterations, keyLength, sha256.New)
}

func parseRetiredKey(entry string) (int, string, error) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("chave aposentada em formato inválido: %q", entry)
	}

	version, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, "", fmt.Errorf("versão de chave aposentada inválida: %q", parts[0])
	}

	return version, parts[1], nil
}

// Encrypt criptografa o texto com AES-GCM sob a chave corrente e retorna o
// envelope "v<versão>:<base64(nonce||ciphertext)>"
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(v.keys[v.currentVersion])
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return fmt.Sprintf("v%d:%s", v.currentVersion, base64.StdEncoding.EncodeToString(sealed)), nil
}

// Decrypt abre um envelope emitido por Encrypt. Falha com ErrDecryption
// quando a tag de autenticação não confere ou a versão da chave é
// desconhecida
func (v *Vault) Decrypt(envelope string) (string, error) {
	if envelope == "" {
		return "", nil
	}

	version, payload, err := splitEnvelope(envelope)
	if err != nil {
		return "", err
	}

	key, ok := v.keys[version]
	if !ok {
		return "", NewDecryptionError(fmt.Sprintf("versão de chave desconhecida ou aposentada: v%d", version))
	}

	sealed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", NewDecryptionError("payload do envelope não é base64 válido")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", NewDecryptionError("envelope truncado")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", NewDecryptionError("tag de autenticação inválida")
	}

	return string(plaintext), nil
}

func splitEnvelope(envelope string) (int, string, error) {
	if !strings.HasPrefix(envelope, "v") {
		return 0, "", NewDecryptionError("envelope sem prefixo de versão")
	}

	parts := strings.SplitN(envelope[1:], ":", 2)
	if len(parts) != 2 {
		return 0, "", NewDecryptionError("envelope em formato inválido")
	}

	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", NewDecryptionError("versão do envelope não é numérica")
	}

	return version, parts[1], nil
}

// EnsureFresh devolve um access token válido para a conexão, renovando-o
// via refresh token quando expirado. Chamadas concorrentes para a mesma
// conexão são serializadas e reaproveitam o resultado do refresh em voo
func (v *Vault) EnsureFresh(ctx context.Context, connectionID string) (string, error) {
	conn, err := v.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", fmt.Errorf("conexão não encontrada: %s", connectionID)
	}

	if !conn.TokenExpired(time.Now().Add(refreshMargin)) {
		return v.Decrypt(conn.EncryptedAccessToken)
	}

	return v.refresh(ctx, connectionID, false)
}

// Refresh força a renovação do access token, ignorando a expiração
// registrada. Usado no retry único após uma resposta 401: a Amazon pode
// revogar ou rotacionar o token com a expiração local ainda no futuro
func (v *Vault) Refresh(ctx context.Context, connectionID string) (string, error) {
	return v.refresh(ctx, connectionID, true)
}

func (v *Vault) refresh(ctx context.Context, connectionID string, force bool) (string, error) {
	lock := v.lockFor(connectionID)
	lock.Lock()
	defer lock.Unlock()

	// Reler a conexão sob o lock: outro chamador pode ter acabado de
	// renovar o token enquanto aguardávamos
	conn, err := v.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", fmt.Errorf("conexão não encontrada: %s", connectionID)
	}

	// Uma renovação forçada nunca devolve o token registrado: um 401 chega
	// com a expiração local ainda no futuro quando o token foi revogado do
	// lado da Amazon
	if !force && !conn.TokenExpired(time.Now().Add(refreshMargin)) {
		return v.Decrypt(conn.EncryptedAccessToken)
	}

	refreshToken, err := v.Decrypt(conn.EncryptedRefreshToken)
	if err != nil {
		return "", err
	}

	logrus.WithField("connection_id", connectionID).Info("Renovando access token da conexão")

	token, err := v.client.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		return "", NewAuthError(err, connectionID)
	}

	if err := v.storeTokens(ctx, conn, token.AccessToken, token.RefreshToken, token.ExpiresIn); err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// storeTokens recriptografa os tokens sob a chave corrente e persiste a
// conexão atualizada
func (v *Vault) storeTokens(ctx context.Context, conn *domain.Connection, accessToken, refreshToken string, expiresIn int64) error {
	encryptedAccess, err := v.Encrypt(accessToken)
	if err != nil {
		return err
	}

	conn.EncryptedAccessToken = encryptedAccess

	// A Amazon pode rotacionar o refresh token junto com o access token
	if refreshToken != "" {
		encryptedRefresh, err := v.Encrypt(refreshToken)
		if err != nil {
			return err
		}
		conn.EncryptedRefreshToken = encryptedRefresh
	}

	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	conn.TokenExpiresAt = &expiresAt

	return v.connRepo.UpdateTokens(ctx, conn)
}

func (v *Vault) lockFor(connectionID string) *sync.Mutex {
	lock, _ := v.refreshLocks.LoadOrStore(connectionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
