package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
)

// ArtifactStorage guarda o conteúdo descomprimido dos relatórios em um
// bucket S3-compatível. A localização retornada é o caminho do objeto
// dentro do bucket configurado
type ArtifactStorage struct {
	client *minio.Client
	bucket string
}

func NewArtifactStorage(ctx context.Context, cfg config.Storage) (*ArtifactStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "erro ao criar o cliente de storage")
	}

	storage := &ArtifactStorage{
		client: client,
		bucket: cfg.Bucket,
	}

	if err := storage.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return storage, nil
}

func (s *ArtifactStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, "erro ao verificar o bucket de artefatos")
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, "erro ao criar o bucket de artefatos")
	}

	logrus.WithField("bucket", s.bucket).Info("Bucket de artefatos criado")

	return nil
}

// Save grava o conteúdo do relatório em streaming, sem bufferizar o artefato
// inteiro em memória
func (s *ArtifactStorage) Save(ctx context.Context, job *domain.ReportJob, content io.Reader) (string, error) {
	key := s.objectKey(job)

	// Tamanho desconhecido (-1): o SDK envia em multipart
	_, err := s.client.PutObject(ctx, s.bucket, key, content, -1, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", errors.Wrap(err, "erro ao gravar o artefato no storage")
	}

	logrus.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
	}).Info("Artefato gravado no storage")

	return key, nil
}

// Open devolve o conteúdo de um artefato já armazenado
func (s *ArtifactStorage) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucket, location, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "erro ao abrir o artefato no storage")
	}
	return object, nil
}

func (s *ArtifactStorage) objectKey(job *domain.ReportJob) string {
	return fmt.Sprintf(
		"reports/%s/%s/%s/%s.json",
		job.ConnectionID,
		job.AdProduct,
		job.CreatedAt.UTC().Format(time.DateOnly),
		job.ReportID,
	)
}
