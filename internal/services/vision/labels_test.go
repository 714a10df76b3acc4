package vision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enricher/internal/logger"
)

type fakeRekognition struct {
	labels []string
	err    error
	input  *rekognition.DetectLabelsInput
}

func (f *fakeRekognition) DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	out := &rekognition.DetectLabelsOutput{}
	for _, l := range f.labels {
		out.Labels = append(out.Labels, types.Label{Name: aws.String(l), Confidence: aws.Float32(90)})
	}
	return out, nil
}

func imageServer(t *testing.T, status int, body []byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/image.jpg"
}

func TestLabelDetector_Labels(t *testing.T) {
	api := &fakeRekognition{labels: []string{"Bottle", "Olive Oil", ""}}
	d := NewLabelDetector(api, logger.Nop())

	labels, err := d.Labels(context.Background(), imageServer(t, http.StatusOK, []byte("jpeg-bytes")))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bottle", "Olive Oil"}, labels)

	require.NotNil(t, api.input)
	assert.Equal(t, []byte("jpeg-bytes"), api.input.Image.Bytes)
	assert.EqualValues(t, 15, aws.ToInt32(api.input.MaxLabels))
}

func TestLabelDetector_DownloadFailure(t *testing.T) {
	d := NewLabelDetector(&fakeRekognition{}, logger.Nop())
	_, err := d.Labels(context.Background(), imageServer(t, http.StatusNotFound, nil))
	assert.Error(t, err)
}

func TestLabelDetector_RekognitionError(t *testing.T) {
	d := NewLabelDetector(&fakeRekognition{err: errors.New("throttled")}, logger.Nop())
	_, err := d.Labels(context.Background(), imageServer(t, http.StatusOK, []byte("x")))
	assert.ErrorContains(t, err, "throttled")
}
