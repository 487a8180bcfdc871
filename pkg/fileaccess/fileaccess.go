// Package fileaccess lets the drift-model table (and anything else small)
// live on local disk or in S3 behind one interface. A "bucket" is a root
// directory for local access.
package fileaccess

import(
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

type FileAccess interface {
	ListObjects(bucket string, prefix string) ([]string, error)
	ReadObject(bucket string, path string) ([]byte, error)
	WriteObject(bucket string, path string, data []byte) error
	IsNotFoundError(err error) bool
}

const s3Scheme = "s3://"

// Location is a parsed "s3://bucket/key" URL or a local path.
type Location struct {
	Bucket string
	Path   string
	IsS3   bool
}

func (l Location)String() string {
	if l.IsS3 {
		return s3Scheme + l.Bucket + "/" + l.Path
	}
	return l.Path
}

func ParseLocation(loc string) (Location, error) {
	if !strings.HasPrefix(loc, s3Scheme) {
		if loc == "" {
			return Location{}, errors.New("empty location")
		}
		return Location{Path: loc}, nil
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(loc, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, errors.Errorf("bad s3 location %q, want s3://bucket/key", loc)
	}
	return Location{Bucket: bucket, Path: key, IsS3: true}, nil
}

// ForLocation picks local or S3 access for loc. An S3 session is only
// created when needed; region comes from AWS_DEFAULT_REGION.
func ForLocation(loc string, region string) (FileAccess, Location, error) {
	l, err := ParseLocation(loc)
	if err != nil {
		return nil, l, err
	}
	if !l.IsS3 {
		return &FSAccess{}, l, nil
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, l, errors.Wrapf(err, "aws session for %s", loc)
	}
	return MakeS3Access(s3.New(sess)), l, nil
}

// MakeValidObjectName strips characters that make awkward file or S3 key
// names; slashes and spaces become underscores.
func MakeValidObjectName(name string) string {
	for _, c := range []string{"?", "$", "#", "!", "'", "\""} {
		name = strings.ReplaceAll(name, c, "")
	}
	for _, c := range []string{"/", "\\", " "} {
		name = strings.ReplaceAll(name, c, "_")
	}
	return name
}
