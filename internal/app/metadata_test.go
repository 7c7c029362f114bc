package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const baseURL = "http://localhost:3000/docs"

func TestExtractMetadata_Title(t *testing.T) {
	tests := []struct {
		fileName string
		title    string
		section  string
	}{
		{fileName: "RIPLAY-AutoCillin-2023.pdf", title: "RIPLAY AutoCillin 2023", section: "Informasi Produk"},
		{fileName: "Brosur-Motopro.pdf", title: "Brosur Motopro", section: "Brosur Produk"},
		{fileName: "Polis-Standar-Kendaraan.pdf", title: "Polis Standar Kendaraan", section: "Dokumen"},
		{fileName: "riplay-lower.pdf", title: "riplay lower", section: "Dokumen"},
		{fileName: "Ringkasan-RIPLAY-Motolite.pdf", title: "RIPLAY Ringkasan Motolite", section: "Informasi Produk"},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			info := ExtractMetadata(baseURL, tt.fileName, "teks tanpa kata kunci")
			assert.Equal(t, tt.title, info.Title)
			assert.Equal(t, tt.section, info.Section)
			assert.Equal(t, baseURL+"/"+tt.fileName, info.Source)
		})
	}
}

func TestExtractMetadata_SectionCascade(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "manfaat tambahan beats premi", text: "Premi dan MANFAAT Tambahan", want: "Manfaat Tambahan"},
		{name: "manfaat", text: "Manfaat utama polis", want: "Manfaat Produk"},
		{name: "premi", text: "Besaran premi tahunan", want: "Premi dan Tarif"},
		{name: "tarif", text: "Tabel Tarif", want: "Premi dan Tarif"},
		{name: "klaim", text: "Cara mengajukan klaim", want: "Prosedur Klaim"},
		{name: "syarat", text: "Syarat umum", want: "Syarat dan Ketentuan"},
		{name: "ketentuan", text: "Ketentuan khusus", want: "Syarat dan Ketentuan"},
		{name: "premi beats klaim", text: "klaim dan premi", want: "Premi dan Tarif"},
		{name: "default", text: "Selamat datang", want: "Informasi Produk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ExtractMetadata(baseURL, "RIPLAY-Autocillin.pdf", tt.text)
			assert.Equal(t, tt.want, info.Section)
		})
	}
}
