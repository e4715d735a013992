package models

// Answer is the chatbot reply wrapped in {data: {...}}.
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources,omitempty"`
}

type Suggestions struct {
	Suggestions []string `json:"suggestions"`
}

// CropAnalysis is what the ML service returns for an uploaded crop photo.
type CropAnalysis struct {
	CropName       string  `json:"crop_name"`
	Description    string  `json:"description"`
	SuggestedPrice float64 `json:"suggested_price"`
	Quality        string  `json:"quality,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// CropConditions feeds the crop recommendation model.
type CropConditions struct {
	SoilType    string  `json:"soil_type"`
	Season      string  `json:"season"`
	Rainfall    float64 `json:"rainfall"`
	Temperature int     `json:"temperature"`
	Humidity    int     `json:"humidity"`
}

type PriceQuery struct {
	CropName string  `json:"crop_name"`
	Quantity int     `json:"quantity,omitempty"`
	Quality  string  `json:"quality,omitempty"`
	Location string  `json:"location,omitempty"`
	Rainfall float64 `json:"rainfall,omitempty"`
}
