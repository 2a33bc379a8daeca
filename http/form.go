package http

import (
	"html/template"
	"net/http"
	"strconv"

	"pricepred/ml"

	"go.uber.org/zap"
)

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>USA Housing Price Predictor</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 2rem auto; }
label { display: block; margin-top: .75rem; }
input, select { width: 100%; }
.success { background: #e6f4ea; padding: 1rem; margin-top: 1rem; }
.error { background: #fce8e6; padding: 1rem; margin-top: 1rem; }
</style>
</head>
<body>
<h1>USA Housing Price Predictor</h1>
<p>Predict housing prices based on home features using a trained ML model.</p>
<form method="post" action="/">
<h2>Input Features</h2>
{{range .Fields}}<label>{{.Label}}
<input type="number" name="{{.Name}}" min="{{.Min}}" max="{{.Max}}" step="{{.Step}}" value="{{.Value}}">
</label>
{{end}}<label>City
<select name="city">
{{range .Cities}}<option value="{{.}}"{{if eq . $.City}} selected{{end}}>{{.}}</option>
{{end}}</select>
</label>
<p><button type="submit">Predict</button></p>
</form>
{{if .Price}}<div class="success">Predicted Price: {{.Price}}</div>{{end}}
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
</body>
</html>
`))

type formField struct {
	ml.Bound
	Value float64
}

type formPage struct {
	Fields []formField
	Cities []string
	City   string
	Price  string
	Error  string
}

func (a *API) handleForm(w http.ResponseWriter, r *http.Request) {
	a.renderForm(w, http.StatusOK, ml.DefaultHouseFeatures(), ml.OtherCity, "", "")
}

func (a *API) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	features, city, err := parseForm(r)
	if err != nil {
		a.renderForm(w, http.StatusBadRequest, features, city, "", err.Error())
		return
	}
	prediction, err := a.predictor.Predict(r.Context(), features, city)
	if err != nil {
		a.renderForm(w, predictionStatus(err), features, city, "", err.Error())
		return
	}
	a.renderForm(w, http.StatusOK, features, city, prediction.Formatted, "")
}

// parseForm reads submitted values over the defaults.
func parseForm(r *http.Request) (ml.HouseFeatures, string, error) {
	features := ml.DefaultHouseFeatures()
	if err := r.ParseForm(); err != nil {
		return features, ml.OtherCity, err
	}
	city := r.PostForm.Get("city")
	if city == "" {
		city = ml.OtherCity
	}

	raw := features.Raw()
	for _, name := range ml.ScalarFeatureNames() {
		value := r.PostForm.Get(name)
		if value == "" {
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return features, city, err
		}
		raw[name] = v
	}
	features = ml.HouseFeatures{
		SqftLiving: raw[ml.FeatureSqftLiving],
		Bedrooms:   raw[ml.FeatureBedrooms],
		Bathrooms:  raw[ml.FeatureBathrooms],
		Floors:     raw[ml.FeatureFloors],
		Waterfront: raw[ml.FeatureWaterfront],
		View:       raw[ml.FeatureView],
		Condition:  raw[ml.FeatureCondition],
		Grade:      raw[ml.FeatureGrade],
	}
	return features, city, features.Validate()
}

func (a *API) renderForm(w http.ResponseWriter, status int, features ml.HouseFeatures, city, price, errText string) {
	page := formPage{City: city, Price: price, Error: errText}
	raw := features.Raw()
	for _, b := range ml.InputBounds() {
		page.Fields = append(page.Fields, formField{Bound: b, Value: raw[b.Name]})
	}
	if artifacts, err := a.predictor.Artifacts(); err == nil {
		page.Cities = artifacts.Schema.CityOptions()
	} else {
		page.Cities = []string{ml.OtherCity}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, page); err != nil {
		a.logger.Error("render form failed", zap.Error(err))
	}
}
