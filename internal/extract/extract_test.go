package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExtractor_SinglePage(t *testing.T) {
	e := NewPDFExtractor()
	res, err := e.Extract([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.StableText)
	require.Len(t, res.PageMap, 1)
	assert.Equal(t, 1, res.PageMap[0].Page)
	assert.Equal(t, 0, res.PageMap[0].StartChar)
	assert.Equal(t, len(res.StableText), res.PageMap[0].EndChar)
	require.Len(t, res.LayoutMap.Lines, 1)
}

func TestPDFExtractor_MultiPage(t *testing.T) {
	e := NewPDFExtractor()
	res, err := e.Extract([]byte("page one\x0cpage two\x0cpage three"))
	require.NoError(t, err)
	require.Len(t, res.PageMap, 3)
	for i, p := range res.PageMap {
		assert.Equal(t, i+1, p.Page)
	}
	// page_map intervals must partition [0, len(stable_text)].
	assert.Equal(t, 0, res.PageMap[0].StartChar)
	assert.Equal(t, len(res.StableText), res.PageMap[len(res.PageMap)-1].EndChar)
	for i := 1; i < len(res.PageMap); i++ {
		assert.Equal(t, res.PageMap[i-1].EndChar, res.PageMap[i].StartChar)
	}
}

func TestPDFExtractor_StableTextReconstructsFromPageMap(t *testing.T) {
	e := NewPDFExtractor()
	res, err := e.Extract([]byte("alpha\x0cbeta"))
	require.NoError(t, err)
	var rebuilt string
	for _, p := range res.PageMap {
		rebuilt += res.StableText[p.StartChar:p.EndChar]
	}
	assert.Equal(t, res.StableText, rebuilt)
}

func TestPDFExtractor_EmptyInputErrors(t *testing.T) {
	e := NewPDFExtractor()
	_, err := e.Extract(nil)
	assert.Error(t, err)
}

func TestPDFExtractor_StripsNonPrintableBytes(t *testing.T) {
	e := NewPDFExtractor()
	res, err := e.Extract([]byte{'h', 'i', 0x00, 0x01, 'x'})
	require.NoError(t, err)
	assert.Equal(t, "hix", res.StableText)
}

func TestPDFExtractor_Deterministic(t *testing.T) {
	e := NewPDFExtractor()
	input := []byte("some\x0cpdf\x0ccontent")
	res1, err := e.Extract(input)
	require.NoError(t, err)
	res2, err := e.Extract(input)
	require.NoError(t, err)
	assert.Equal(t, res1, res2)
}
