package domain

// ExtractCandidates reads at most one candidate per document type from the field set.
// A missing or empty content field yields no candidate; judging that absence
// is left to Validate.
func ExtractCandidates(fields FieldSet, specs []DocumentTypeSpec) map[string]DocumentCandidate {
	out := make(map[string]DocumentCandidate, len(specs))
	for _, spec := range specs {
		file, ok := fields.Files[DocumentFieldKey(spec.Key)]
		if !ok || len(file.Content) == 0 {
			continue
		}
		out[spec.Key] = DocumentCandidate{
			DocumentType:     spec.Key,
			Content:          file.Content,
			MimeType:         file.ContentType,
			Note:             fields.Values[NoteFieldKey(spec.Key)],
			OriginalFilename: file.Filename,
		}
	}
	return out
}
