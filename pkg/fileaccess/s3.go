package fileaccess

import(
	"bytes"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Access is file access on AWS S3.
type S3Access struct {
	s3Api s3iface.S3API
}

func MakeS3Access(s3Api s3iface.S3API) S3Access {
	return S3Access{s3Api: s3Api}
}

// ListObjects follows continuation tokens until the listing is complete.
func (sa S3Access)ListObjects(bucket string, prefix string) ([]string, error) {
	result := []string{}
	params := s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}

	for {
		listing, err := sa.s3Api.ListObjectsV2(&params)
		if err != nil {
			return []string{}, err
		}
		for _, item := range listing.Contents {
			result = append(result, aws.StringValue(item.Key))
		}

		if aws.BoolValue(listing.IsTruncated) && listing.NextContinuationToken != nil {
			params.ContinuationToken = listing.NextContinuationToken
		} else {
			break
		}
	}

	return result, nil
}

func (sa S3Access)ReadObject(bucket string, path string) ([]byte, error) {
	result, err := sa.s3Api.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}

func (sa S3Access)WriteObject(bucket string, path string, data []byte) error {
	_, err := sa.s3Api.PutObject(&s3.PutObjectInput{
		Body:   bytes.NewReader(data),
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	return err
}

func (sa S3Access)IsNotFoundError(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}
