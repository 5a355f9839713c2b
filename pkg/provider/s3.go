package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const createdAtMetadata = "created-at"

// S3Config 对象存储配置
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // 兼容 S3 的服务地址，如 MinIO
}

// S3API S3Provider 用到的客户端方法
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Provider 报告保存为 <prefix>/<databaseId>/<id>.json
type S3Provider struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Provider 使用默认凭证链创建客户端
func NewS3Provider(ctx context.Context, cfg S3Config) (*S3Provider, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 provider requires a bucket")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3ProviderWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3ProviderWithClient 使用已有客户端创建
func NewS3ProviderWithClient(client S3API, bucket, prefix string) *S3Provider {
	return &S3Provider{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (p *S3Provider) root() string {
	if p.prefix == "" {
		return ""
	}
	return p.prefix + "/"
}

func (p *S3Provider) objectKey(databaseID, id string) string {
	return p.root() + path.Join(databaseID, id+".json")
}

func (p *S3Provider) Create(ctx context.Context, analysis *models.DatabaseAnalysis) (*models.DatabaseAnalysis, error) {
	saved, data, err := prepare(analysis)
	if err != nil {
		return nil, err
	}
	if saved.DatabaseID == "" || strings.Contains(saved.DatabaseID, "/") {
		return nil, fmt.Errorf("invalid database id for s3 provider: %q", saved.DatabaseID)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.objectKey(saved.DatabaseID, saved.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			createdAtMetadata: saved.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put analysis to S3: %w", err)
	}
	return saved, nil
}

// Get 只知道 id，需要在前缀下查找对应对象
func (p *S3Provider) Get(ctx context.Context, id string) (*models.DatabaseAnalysis, error) {
	suffix := "/" + id + ".json"
	var key string
	err := p.walk(ctx, p.root(), func(obj types.Object) bool {
		if strings.HasSuffix(aws.ToString(obj.Key), suffix) {
			key = aws.ToString(obj.Key)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, notFound(id)
	}

	result, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to get analysis from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis from S3: %w", err)
	}
	return decode(data)
}

func (p *S3Provider) List(ctx context.Context, databaseID string) ([]models.ShortDatabaseAnalysis, error) {
	list := []models.ShortDatabaseAnalysis{}
	var keys []string
	err := p.walk(ctx, p.root()+databaseID+"/", func(obj types.Object) bool {
		keys = append(keys, aws.ToString(obj.Key))
		return true
	})
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		head, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to head %s: %w", key, err)
		}
		item := models.ShortDatabaseAnalysis{ID: strings.TrimSuffix(path.Base(key), ".json")}
		if v, ok := head.Metadata[createdAtMetadata]; ok {
			item.CreatedAt, _ = time.Parse(time.RFC3339Nano, v)
		} else if head.LastModified != nil {
			item.CreatedAt = head.LastModified.UTC()
		}
		list = append(list, item)
	}
	sortNewestFirst(list)
	return list, nil
}

// walk 分页列出前缀下的对象，fn 返回 false 时停止
func (p *S3Provider) walk(ctx context.Context, prefix string, fn func(types.Object) bool) error {
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list analyses in S3: %w", err)
		}
		for _, obj := range page.Contents {
			if !fn(obj) {
				return nil
			}
		}
	}
	return nil
}

func (p *S3Provider) Close() error {
	return nil
}
