package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_UploadListDownload(t *testing.T) {
	srv := New()
	ctx := context.Background()

	uploadOut := &UploadOutput{}
	err := srv.Upload(ctx, &UploadInput{
		Assets: []*Asset{
			{URL: "mem://localhost/mlgate/metrics/train.json", Data: []byte(`{"rmse": [2500, 1900]}`)},
			{URL: "mem://localhost/mlgate/metrics/eval.yaml", Data: []byte("rmse:\n  - 1800\n")},
		},
	}, uploadOut)
	assert.NoError(t, err)
	assert.Len(t, uploadOut.Assets, 2)
	assert.Equal(t, "application/json", uploadOut.Assets[0].ContentType)

	listOut := &ListOutput{}
	err = srv.List(ctx, &ListInput{URL: "mem://localhost/mlgate/metrics/"}, listOut)
	assert.NoError(t, err)
	assert.True(t, len(listOut.Assets) >= 2)

	downloadOut := &DownloadOutput{}
	err = srv.Download(ctx, &DownloadInput{
		Assets:      []string{"mem://localhost/mlgate/metrics/train.json"},
		IncludeData: true,
	}, downloadOut)
	assert.NoError(t, err)
	if assert.Len(t, downloadOut.Assets, 1) {
		assert.Equal(t, []byte(`{"rmse": [2500, 1900]}`), downloadOut.Assets[0].Data)
	}
}

func TestService_DownloadMissing(t *testing.T) {
	srv := New()
	out := &DownloadOutput{}
	err := srv.Download(context.Background(), &DownloadInput{
		Assets: []string{"mem://localhost/mlgate/absent.json"},
	}, out)
	assert.Error(t, err)
}
