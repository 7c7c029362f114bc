package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: DefaultChunkSize, overlap: DefaultChunkOverlap},
		{name: "zero overlap", size: 10, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 10, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 10, overlap: 10, wantErr: true},
		{name: "overlap larger than size", size: 10, overlap: 20, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.size, tt.overlap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSize)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, s.Size())
			assert.Equal(t, tt.overlap, s.Overlap())
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	s, err := New(100, 10)
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split(" \n\n "))
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	s, err := New(100, 10)
	require.NoError(t, err)

	chunks := s.Split("Polis berlaku satu tahun. Premi dibayar di muka.")
	assert.Equal(t, []string{"Polis berlaku satu tahun. Premi dibayar di muka."}, chunks)
}

func TestSplit_KeepsSentencesWhole(t *testing.T) {
	s, err := New(30, 0)
	require.NoError(t, err)

	chunks := s.Split("Kalimat pertama ini. Kalimat kedua ini. Kalimat ketiga ini.")
	assert.Equal(t, []string{
		"Kalimat pertama ini.",
		"Kalimat kedua ini.",
		"Kalimat ketiga ini.",
	}, chunks)
}

func TestSplit_OverlapCarriesTrailingSentence(t *testing.T) {
	s, err := New(45, 15)
	require.NoError(t, err)

	chunks := s.Split("Satu dua tiga. Empat lima. Enam tujuh delapan. Sembilan.")
	require.Len(t, chunks, 2)
	assert.Equal(t, "Satu dua tiga. Empat lima.", chunks[0])
	assert.Equal(t, "Empat lima. Enam tujuh delapan. Sembilan.", chunks[1])
}

func TestSplit_ParagraphBreakEndsSentence(t *testing.T) {
	s, err := New(20, 0)
	require.NoError(t, err)

	chunks := s.Split("Judul Dokumen\n\nIsi pertama.")
	assert.Equal(t, []string{"Judul Dokumen", "Isi pertama."}, chunks)
}

func TestSplit_DecimalPointIsNotBoundary(t *testing.T) {
	s, err := New(200, 0)
	require.NoError(t, err)

	chunks := s.Split("Tarif 2.5 persen berlaku. Lainnya.")
	assert.Equal(t, []string{"Tarif 2.5 persen berlaku. Lainnya."}, chunks)
}

func TestSplit_LongSentenceIsHardSplit(t *testing.T) {
	s, err := New(20, 5)
	require.NoError(t, err)

	long := strings.Repeat("kata ", 30)
	chunks := s.Split(long)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 20)
		assert.NotEmpty(t, c)
	}
	assert.Equal(t, strings.Fields(long), strings.Fields(strings.Join(chunks, " ")))
}

func TestSplit_UnbrokenWordIsCutAtSize(t *testing.T) {
	s, err := New(10, 0)
	require.NoError(t, err)

	chunks := s.Split(strings.Repeat("x", 25))
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, chunks)
}

func TestSplit_NeverExceedsSize(t *testing.T) {
	text := strings.Repeat("Tertanggung wajib melaporkan klaim dalam 5 hari kerja. Pengecualian berlaku untuk banjir! Apakah gempa dijamin? ", 40)
	for _, cfg := range [][2]int{{64, 16}, {128, 32}, {300, 0}, {1024, 128}} {
		s, err := New(cfg[0], cfg[1])
		require.NoError(t, err)

		chunks := s.Split(text)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), cfg[0])
		}
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	s, err := New(12, 0)
	require.NoError(t, err)

	chunks := s.Split("Ééééé ééé. Àà.")
	assert.Equal(t, []string{"Ééééé ééé.", "Àà."}, chunks)
}
