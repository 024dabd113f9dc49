// Package archive optionally persists a finished cycle's captured
// variables as a JSON blob, separately from the summary row package
// history writes. history answers "did this run and what happened";
// archive keeps the full variable set if an operator wants to go
// back and inspect exactly what a particular cycle saw.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/remindctl/remind/config"
)

// Archive stores and retrieves a cycle's captured variables.
type Archive interface {
	Put(ctx context.Context, workflowName string, cycleID int64, variables map[string]string) (location string, err error)
	Get(ctx context.Context, location string) (map[string]string, error)
}

// New builds an Archive from daemon config. Driver "none" disables
// archival entirely.
func New(cfg *config.ArchiveConfig) (Archive, error) {
	if cfg == nil || cfg.Driver == "" || cfg.Driver == "filesystem" {
		dir := config.DefaultArchiveDir
		if cfg != nil && cfg.Directory != "" {
			dir = cfg.Directory
		}
		return newFilesystemArchive(dir)
	}
	switch cfg.Driver {
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 archive driver requires bucket")
		}
		return newS3Archive(cfg.Bucket)
	case "none":
		return noopArchive{}, nil
	default:
		return nil, fmt.Errorf("unsupported archive driver: %s", cfg.Driver)
	}
}

func objectName(workflowName string, cycleID int64) string {
	return fmt.Sprintf("%s-%d.json", strings.ReplaceAll(workflowName, "/", "_"), cycleID)
}

type noopArchive struct{}

func (noopArchive) Put(context.Context, string, int64, map[string]string) (string, error) {
	return "", nil
}
func (noopArchive) Get(context.Context, string) (map[string]string, error) {
	return nil, fmt.Errorf("archive disabled")
}

type filesystemArchive struct {
	dir string
}

func newFilesystemArchive(dir string) (*filesystemArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &filesystemArchive{dir: dir}, nil
}

func (f *filesystemArchive) Put(_ context.Context, workflowName string, cycleID int64, variables map[string]string) (string, error) {
	data, err := json.Marshal(variables)
	if err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, objectName(workflowName, cycleID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return "file://" + path, nil
}

func (f *filesystemArchive) Get(_ context.Context, location string) (map[string]string, error) {
	const prefix = "file://"
	if !strings.HasPrefix(location, prefix) {
		return nil, fmt.Errorf("invalid archive location: %s", location)
	}
	data, err := os.ReadFile(strings.TrimPrefix(location, prefix))
	if err != nil {
		return nil, err
	}
	var vars map[string]string
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, err
	}
	return vars, nil
}

type s3Archive struct {
	client *s3.Client
	bucket string
}

func newS3Archive(bucket string) (*s3Archive, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}
	return &s3Archive{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (a *s3Archive) Put(ctx context.Context, workflowName string, cycleID int64, variables map[string]string) (string, error) {
	data, err := json.Marshal(variables)
	if err != nil {
		return "", err
	}
	key := objectName(workflowName, cycleID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

func (a *s3Archive) Get(ctx context.Context, location string) (map[string]string, error) {
	const prefix = "s3://"
	if !strings.HasPrefix(location, prefix) {
		return nil, fmt.Errorf("invalid archive location: %s", location)
	}
	rest := strings.TrimPrefix(location, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid s3 archive location: %s", location)
	}
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(parts[0]),
		Key:    aws.String(parts[1]),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	var vars map[string]string
	if err := json.Unmarshal(buf.Bytes(), &vars); err != nil {
		return nil, err
	}
	return vars, nil
}
