package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"jiuba_platform/internal/config"
)

// ==================== 接口定义 ====================

// StorageProvider 存储提供者接口
type StorageProvider interface {
	// Upload 上传文件，key 为相对路径，返回公开访问 URL
	Upload(ctx context.Context, data []byte, key string, contentType string) (url string, err error)

	// Delete 删除文件
	Delete(ctx context.Context, url string) error
}

// 上传限制
const (
	maxImageSize = 5 << 20
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ==================== 工厂方法 ====================

// NewStorageProvider 按配置创建存储
func NewStorageProvider(cfg config.StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "cos":
		return NewCOSStorage(cfg)
	case "", "local":
		return NewLocalStorage(cfg), nil
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService 图片上传服务（商品图、店铺 Logo、活动封面、头像）
type StorageService struct {
	provider StorageProvider
	http     *resty.Client
	local    *LocalStorage
}

// NewStorageService 创建存储服务
func NewStorageService(cfg config.StorageConfig) (*StorageService, error) {
	provider, err := NewStorageProvider(cfg)
	if err != nil {
		return nil, err
	}
	svc := &StorageService{
		provider: provider,
		http:     resty.New().SetTimeout(30 * time.Second),
	}
	if local, ok := provider.(*LocalStorage); ok {
		svc.local = local
	}
	return svc, nil
}

// LocalDir 本地存储目录，非本地存储返回 false
func (s *StorageService) LocalDir() (string, bool) {
	if s == nil || s.local == nil {
		return "", false
	}
	return s.local.basePath, true
}

// UploadImage 上传图片，prefix 如 "products"、"avatars"
func (s *StorageService) UploadImage(ctx context.Context, data []byte, prefix string) (string, error) {
	if s == nil || s.provider == nil {
		return "", ErrStorageDisabled
	}
	if len(data) == 0 || len(data) > maxImageSize {
		return "", fmt.Errorf("%w: 图片大小需在 0-5MB 之间", ErrInvalidFile)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidFile, contentType)
	}

	return s.provider.Upload(ctx, data, generateKey(prefix, ext), contentType)
}

// UploadFromURL 下载远程图片后上传
func (s *StorageService) UploadFromURL(ctx context.Context, sourceURL, prefix string) (string, error) {
	resp, err := s.http.R().SetContext(ctx).Get(sourceURL)
	if err != nil {
		return "", fmt.Errorf("下载失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("下载失败: HTTP %d", resp.StatusCode())
	}
	return s.UploadImage(ctx, resp.Body(), prefix)
}

// Delete 删除文件，空 URL 忽略
func (s *StorageService) Delete(ctx context.Context, url string) error {
	if s == nil || s.provider == nil || url == "" {
		return nil
	}
	return s.provider.Delete(ctx, url)
}

// generateKey prefix/2006/01/02/uuid.ext
func generateKey(prefix, ext string) string {
	name := uuid.NewString() + ext
	datePath := time.Now().Format("2006/01/02")
	if prefix == "" {
		return path.Join(datePath, name)
	}
	return path.Join(prefix, datePath, name)
}

// ==================== S3 / COS 实现 ====================

// S3Storage S3 协议存储，腾讯云 COS 通过自定义端点兼容
type S3Storage struct {
	client    *s3.Client
	bucket    string
	basePath  string
	publicURL string // 不含末尾斜杠
}

// NewS3Storage AWS S3
func NewS3Storage(cfg config.StorageConfig) (*S3Storage, error) {
	client, err := newS3Client(cfg, "")
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}
	public := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	return newS3Storage(client, cfg, public), nil
}

// NewCOSStorage 腾讯云 COS
func NewCOSStorage(cfg config.StorageConfig) (*S3Storage, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://cos.%s.myqcloud.com", cfg.Region)
	}
	client, err := newS3Client(cfg, endpoint)
	if err != nil {
		return nil, fmt.Errorf("加载COS配置失败: %w", err)
	}
	public := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	return newS3Storage(client, cfg, public), nil
}

func newS3Client(cfg config.StorageConfig, endpoint string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func newS3Storage(client *s3.Client, cfg config.StorageConfig, public string) *S3Storage {
	if cfg.CDNDomain != "" {
		public = "https://" + strings.TrimSuffix(cfg.CDNDomain, "/")
	}
	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		basePath:  strings.Trim(cfg.BasePath, "/"),
		publicURL: public,
	}
}

func (s *S3Storage) objectKey(key string) string {
	if s.basePath == "" {
		return key
	}
	return s.basePath + "/" + key
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	objectKey := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传对象存储失败: %w", err)
	}
	return s.publicURL + "/" + objectKey, nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := strings.TrimPrefix(url, s.publicURL+"/")
	if key == url || key == "" {
		return fmt.Errorf("无法解析文件路径: %s", url)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// ==================== 本地存储 ====================

// LocalStorage 写入本地目录，由路由 /uploads 提供静态访问
type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg config.StorageConfig) *LocalStorage {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *LocalStorage) Upload(_ context.Context, data []byte, key string, _ string) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStorage) Delete(_ context.Context, url string) error {
	key := strings.TrimPrefix(url, s.baseURL+"/")
	if key == url || strings.Contains(key, "..") {
		return fmt.Errorf("无法解析文件路径: %s", url)
	}
	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
