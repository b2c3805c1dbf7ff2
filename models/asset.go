package models

// Asset is one tradable instrument known to the journal. Records are created
// when the directory is populated from the broker and are immutable afterwards.
type Asset struct {
	Ticker         string `json:"ticker"`
	FIGI           string `json:"figi"`
	Name           string `json:"name"`
	UID            string `json:"uid"`
	PositionUID    string `json:"position_uid"`
	Currency       string `json:"currency"`
	Country        string `json:"country"`
	Sector         string `json:"sector"`
	ShortAvailable bool   `json:"short_available"`
}
