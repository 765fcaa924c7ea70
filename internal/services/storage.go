package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

var (
	uploader  *s3manager.Uploader
	useS3     bool
	baseURL   string
	uploadDir string
)

// InitStorage initializes S3-backed uploads for profile photos, with a local
// directory fallback for development machines without AWS credentials.
func InitStorage() error {
	awsRegion := os.Getenv("AWS_REGION")
	awsAccessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	awsSecretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	if awsRegion != "" && awsAccessKey != "" && awsSecretKey != "" {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(awsRegion),
			Credentials: credentials.NewStaticCredentials(awsAccessKey, awsSecretKey, ""),
		})
		if err != nil {
			return fmt.Errorf("failed to create AWS session: %v", err)
		}

		uploader = s3manager.NewUploader(sess)
		useS3 = true
		return nil
	}

	useS3 = false
	uploadDir = os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "/app/uploads"
	}
	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	if err := os.MkdirAll(filepath.Join(uploadDir, "profiles"), 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %v", err)
	}

	return nil
}

// UploadImage stores an uploaded image and returns its public URL.
func UploadImage(file *multipart.FileHeader, folder string) (string, error) {
	if useS3 {
		return uploadToS3(file, folder)
	}
	return uploadLocally(file, folder)
}

func uploadToS3(file *multipart.FileHeader, folder string) (string, error) {
	bucketName := os.Getenv("AWS_S3_BUCKET")
	if bucketName == "" {
		return "", fmt.Errorf("S3 bucket name not configured")
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %v", err)
	}
	defer src.Close()

	buffer := bytes.NewBuffer(nil)
	if _, err := io.Copy(buffer, src); err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}

	contentType := http.DetectContentType(buffer.Bytes())
	fileName := fmt.Sprintf("%s/%d%s", folder, time.Now().UnixNano(), filepath.Ext(file.Filename))

	result, err := uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(buffer.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	return result.Location, nil
}

func uploadLocally(file *multipart.FileHeader, folder string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %v", err)
	}
	defer src.Close()

	fileName := fmt.Sprintf("%d%s", time.Now().UnixNano(), filepath.Ext(file.Filename))
	dstPath := filepath.Join(uploadDir, folder, fileName)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return "", err
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/uploads/%s/%s", baseURL, folder, fileName), nil
}
