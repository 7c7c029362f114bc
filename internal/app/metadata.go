package app

import "strings"

// DocumentInfo is the display metadata inferred for a retrieved chunk.
type DocumentInfo struct {
	Title   string
	Section string
	Source  string
}

// ExtractMetadata infers the title from the file name and the section from the
// chunk text. It never fails; unmatched input falls back to generic labels.
func ExtractMetadata(baseURL, fileName, text string) DocumentInfo {
	var title, section string
	switch {
	case strings.Contains(fileName, "RIPLAY"):
		title = "RIPLAY " + cleanName(strings.ReplaceAll(fileName, "RIPLAY-", ""))
		section = "Informasi Produk"
	case strings.Contains(fileName, "Brosur"):
		title = "Brosur " + cleanName(strings.ReplaceAll(fileName, "Brosur-", ""))
		section = "Brosur Produk"
	default:
		title = cleanName(fileName)
		section = "Dokumen"
	}

	content := strings.ToLower(text)
	switch {
	case strings.Contains(content, "manfaat") && strings.Contains(content, "tambahan"):
		section = "Manfaat Tambahan"
	case strings.Contains(content, "manfaat"):
		section = "Manfaat Produk"
	case strings.Contains(content, "premi") || strings.Contains(content, "tarif"):
		section = "Premi dan Tarif"
	case strings.Contains(content, "klaim"):
		section = "Prosedur Klaim"
	case strings.Contains(content, "syarat") || strings.Contains(content, "ketentuan"):
		section = "Syarat dan Ketentuan"
	}

	return DocumentInfo{
		Title:   title,
		Section: section,
		Source:  baseURL + "/" + fileName,
	}
}

func cleanName(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, ".pdf", ""), "-", " ")
}
