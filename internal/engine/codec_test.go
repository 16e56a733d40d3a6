package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

func sampleSnapshot() passport.Snapshot {
	return passport.Snapshot{
		Surname:   "Иванов",
		GivenName: "Иван",
		Birthday:  503556108,
		Metadata:  []byte("FUNl2gAAAAA="),
		Active:    true,
		Owner:     owner,
		Assets:    map[passport.AccountID]uint32{owner: 1},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, enc := range []Encoding{EncodingText, EncodingBytes} {
		t.Run(string(enc), func(t *testing.T) {
			c := Codec{Encoding: enc}
			data, err := c.Encode(sampleSnapshot())
			require.NoError(t, err)

			got, err := c.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, sampleSnapshot(), got)
		})
	}
}

func TestCodec_TextIsReadable(t *testing.T) {
	data, err := Codec{Encoding: EncodingText}.Encode(sampleSnapshot())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "text", doc["encoding"])
	assert.Equal(t, "Иванов", doc["surname"])
	assert.Equal(t, owner.String(), doc["owner"])
}

func TestCodec_TextRejectsInvalidUTF8(t *testing.T) {
	snap := sampleSnapshot()
	snap.GivenName = "\xff"

	_, err := Codec{Encoding: EncodingText}.Encode(snap)
	require.ErrorIs(t, err, ErrNotText)

	data, err := Codec{Encoding: EncodingBytes}.Encode(snap)
	require.NoError(t, err)
	got, err := Codec{Encoding: EncodingBytes}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "\xff", got.GivenName)
}

func TestCodec_CrossDecode(t *testing.T) {
	data, err := Codec{Encoding: EncodingBytes}.Encode(sampleSnapshot())
	require.NoError(t, err)

	// the document names its encoding, so a text codec can still read it
	got, err := Codec{Encoding: EncodingText}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)
}

func TestCodec_NilMetadataAndNoAssets(t *testing.T) {
	snap := sampleSnapshot()
	snap.Metadata = nil
	snap.Assets = nil

	data, err := Codec{}.Encode(snap)
	require.NoError(t, err)
	got, err := Codec{}.Decode(data)
	require.NoError(t, err)
	assert.Nil(t, got.Metadata)
	assert.Nil(t, got.Assets)
}

func TestCodec_DecodeErrors(t *testing.T) {
	_, err := Codec{}.Decode([]byte("{"))
	require.Error(t, err)

	_, err = Codec{}.Decode([]byte(`{"encoding":"utf16"}`))
	require.Error(t, err)

	_, err = Codec{}.Decode([]byte(`{"encoding":"bytes","surname":"!!not base64!!"}`))
	require.Error(t, err)
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingText, enc)

	enc, err = ParseEncoding("bytes")
	require.NoError(t, err)
	assert.Equal(t, EncodingBytes, enc)

	_, err = ParseEncoding("hex")
	require.Error(t, err)
}
