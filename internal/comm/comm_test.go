package comm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardScanReportValidate(t *testing.T) {
	ok := CardScanReport{UID: "CAFE01", ChipId: "esp-01"}
	assert.NoError(t, ok.Validate())

	noChip := CardScanReport{UID: "CAFE01"}
	assert.NoError(t, noChip.Validate(), "chip_id is optional at the schema level")

	noUID := CardScanReport{ChipId: "esp-01"}
	assert.ErrorIs(t, noUID.Validate(), ErrMissingUID)
}

func TestDoorStatusReportValidate(t *testing.T) {
	cases := []struct {
		name string
		rpt  DoorStatusReport
		want error
	}{
		{"open", DoorStatusReport{ChipId: "esp-01", Door: "OPEN"}, nil},
		{"closed", DoorStatusReport{ChipId: "esp-01", Door: "CLOSED"}, nil},
		{"missing chip", DoorStatusReport{Door: "OPEN"}, ErrMissingChipId},
		{"bad state", DoorStatusReport{ChipId: "esp-01", Door: "AJAR"}, ErrBadDoorState},
		{"empty state", DoorStatusReport{ChipId: "esp-01"}, ErrBadDoorState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rpt.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestCameraOnlineValidate(t *testing.T) {
	ok := CameraOnline{ChipCamId: "cam-01"}
	assert.NoError(t, ok.Validate())

	assert.ErrorIs(t, (&CameraOnline{}).Validate(), ErrMissingChipId)
}

func TestRegisterResultValidate(t *testing.T) {
	ok := RegisterResult{Name: "alice", Embedding: []float64{0.1, 0.2}}
	assert.NoError(t, ok.Validate())

	noName := RegisterResult{Embedding: []float64{0.1}}
	assert.Error(t, noName.Validate())

	noEmbedding := RegisterResult{Name: "alice"}
	assert.Error(t, noEmbedding.Validate())
}

func TestWSMessageEnvelope(t *testing.T) {
	raw := []byte(`{"type":"recognize-embedding","data":{"embedding":[0.5,0.5],"chip_cam_id":"cam-01"},"socketid":"abc"}`)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "recognize-embedding", msg.Type)
	assert.Equal(t, "abc", msg.SocketId)

	var rpt EmbeddingReport
	require.NoError(t, json.Unmarshal(msg.Data, &rpt))
	assert.Equal(t, "cam-01", rpt.ChipCamId)
	assert.Equal(t, []float64{0.5, 0.5}, rpt.Embedding)
}
