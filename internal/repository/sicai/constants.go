package sicai

// Таблицы и ключевые колонки базы SICAI
const (
	trackTable    = `sentiero_italia."SI_Tappe"`
	trackIDColumn = "id_2"

	poiTable    = "sentiero_italia.pt_accoglienza_unofficial"
	poiIDColumn = "id_0"

	geomColumn = "geom"
)
