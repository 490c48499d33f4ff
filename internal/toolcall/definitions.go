package toolcall

// Definition is the model-facing schema of one tool.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func timestampParams(required ...string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"video_id": map[string]any{
				"type":        "string",
				"description": "ID video (opsional)",
			},
			"timestamp": map[string]any{
				"type":        "integer",
				"description": "Waktu dalam detik",
				"minimum":     0,
			},
		},
		"required": required,
	}
}

// Definitions returns the tool schemas offered to the realtime model, in the
// order the model sees them.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        NameNavigateVideo,
			Description: "Navigasi video ke timestamp tertentu. Panggil ini saat user minta pindah ke detik/menit tertentu.",
			Parameters:  timestampParams("timestamp"),
		},
		{
			Name:        NameSearchVideo,
			Description: "Cari video berdasarkan topik/kata kunci. WAJIB panggil ini saat user minta belajar topik baru.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Kata kunci pencarian topik fisika",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        NameGetVideoContent,
			Description: "Dapatkan isi/konten video di timestamp tertentu. WAJIB panggil ini saat user bertanya tentang apa yang dibahas di detik/menit tertentu.",
			Parameters:  timestampParams("timestamp"),
		},
	}
}
