package signing

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportHistoryRendersWorkbook(t *testing.T) {
	mockLedger := new(MockLedger)
	service := newTestService(mockLedger, new(MockStorage), new(MockSource), nil)

	docID := uuid.New()
	signer, rejector := uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	mockLedger.On("ListSignatures", mock.Anything, docID, ChannelDocument).
		Return([]SignatureRecord{
			{ID: uuid.New(), CreatedBy: signer, Kind: KindData, Processed: true, CreatedAt: now},
			{ID: uuid.New(), CreatedBy: uuid.New(), Kind: KindRaw, Processed: false, CreatedAt: now},
		}, nil)
	mockLedger.On("ListRejections", mock.Anything, docID).
		Return([]SignatureRejection{
			{ID: uuid.New(), CreatedBy: rejector, Reason: "wrong amount", CreatedAt: now},
		}, nil)
	mockLedger.On("ListActivity", mock.Anything, docID).
		Return([]ActivityRecord{
			{ID: uuid.New(), ActorID: signer, Action: ActionSign, Detail: "data", CreatedAt: now},
		}, nil)

	data, err := service.ExportHistory(context.Background(), docID)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	file, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows(exportSheet)
	require.NoError(t, err)
	// Header plus two signatures, one rejection, one activity row.
	require.Len(t, rows, 5)
	assert.Equal(t, exportColumns, rows[0])

	assert.Equal(t, signer.String(), rows[1][1])
	assert.Equal(t, "sign", rows[1][2])
	assert.Equal(t, "yes", rows[1][5])

	assert.Equal(t, "no", rows[2][5])

	assert.Equal(t, rejector.String(), rows[3][1])
	assert.Equal(t, "reject", rows[3][2])
	assert.Equal(t, "wrong amount", rows[3][3])
}

func TestHistoryCollectsAllLedgerViews(t *testing.T) {
	mockLedger := new(MockLedger)
	service := newTestService(mockLedger, new(MockStorage), new(MockSource), nil)

	docID := uuid.New()

	mockLedger.On("ListSignatures", mock.Anything, docID, ChannelDocument).
		Return([]SignatureRecord{{ID: uuid.New()}}, nil)
	mockLedger.On("ListRejections", mock.Anything, docID).
		Return([]SignatureRejection{}, nil)
	mockLedger.On("ListActivity", mock.Anything, docID).
		Return([]ActivityRecord{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	history, err := service.History(context.Background(), docID)

	require.NoError(t, err)
	assert.Len(t, history.Signatures, 1)
	assert.Empty(t, history.Rejections)
	assert.Len(t, history.Activity, 2)
}
