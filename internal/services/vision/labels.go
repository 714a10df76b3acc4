package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"enricher/internal/logger"
)

// Rekognition accepts inline images up to 5MB.
const maxImageBytes = 5 << 20

var ErrImageTooLarge = errors.New("image exceeds 5MB")

// DetectLabelsAPI is the slice of the Rekognition client used here.
type DetectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// LabelDetector describes product photos with AWS Rekognition labels.
type LabelDetector struct {
	api           DetectLabelsAPI
	httpClient    *http.Client
	maxLabels     int32
	minConfidence float32
	logger        *logger.Logger
}

func NewLabelDetector(api DetectLabelsAPI, logger *logger.Logger) *LabelDetector {
	return &LabelDetector{
		api:           api,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		maxLabels:     15,
		minConfidence: 75,
		logger:        logger,
	}
}

// NewRekognitionClient loads the default AWS credential chain for region.
func NewRekognitionClient(ctx context.Context, region string) (*rekognition.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return rekognition.NewFromConfig(awsCfg), nil
}

// Labels downloads imageURL and returns label names ordered by confidence.
func (d *LabelDetector) Labels(ctx context.Context, imageURL string) ([]string, error) {
	img, err := d.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	out, err := d.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: img},
		MaxLabels:     aws.Int32(d.maxLabels),
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect labels: %w", err)
	}

	labels := make([]string, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name == nil || *l.Name == "" {
			continue
		}
		labels = append(labels, *l.Name)
	}
	d.logger.Debug("Rekognition returned %d labels for %s", len(labels), imageURL)
	return labels, nil
}

func (d *LabelDetector) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(body) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	return body, nil
}
