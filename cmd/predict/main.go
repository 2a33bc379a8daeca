package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"pricepred/config"
	"pricepred/ml"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	modelPath := flag.String("model_path", "", "model artifact, overrides config")
	schemaPath := flag.String("schema_path", "", "feature schema, overrides config")
	modelType := flag.String("model_type", "", "expected model type, overrides config")
	city := flag.String("city", ml.OtherCity, "city name")
	showRow := flag.Bool("row", false, "print the encoded feature row")

	features := ml.DefaultHouseFeatures()
	values := map[string]*float64{
		ml.FeatureSqftLiving: &features.SqftLiving,
		ml.FeatureBedrooms:   &features.Bedrooms,
		ml.FeatureBathrooms:  &features.Bathrooms,
		ml.FeatureFloors:     &features.Floors,
		ml.FeatureWaterfront: &features.Waterfront,
		ml.FeatureView:       &features.View,
		ml.FeatureCondition:  &features.Condition,
		ml.FeatureGrade:      &features.Grade,
	}
	for _, b := range ml.InputBounds() {
		p := values[b.Name]
		flag.Float64Var(p, b.Name, *p, fmt.Sprintf("%s [%g-%g]", b.Label, b.Min, b.Max))
	}
	flag.Parse()

	paths, err := artifactPaths(*configPath, *modelType, *modelPath, *schemaPath)
	if err != nil {
		log.Fatalf("failed to resolve artifacts: %v", err)
	}
	artifacts, err := ml.LoadArtifacts(paths)
	if err != nil {
		log.Fatalf("failed to load artifacts: %v", err)
	}

	if err := features.Validate(); err != nil {
		log.Fatalf("invalid input: %v", err)
	}

	price, row, err := artifacts.Predict(features.Raw(), *city)
	if *showRow {
		out, _ := json.MarshalIndent(row, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Predicted Price: %s\n", ml.FormatPrice(price))
}

// artifactPaths merges flags over the config file. The config file is
// optional when both paths are given on the command line.
func artifactPaths(configPath, modelType, modelPath, schemaPath string) (ml.ArtifactPaths, error) {
	cfg := config.Default()
	if configPath != "" || modelPath == "" || schemaPath == "" {
		path, err := config.Locate(configPath)
		if err != nil {
			if modelPath == "" || schemaPath == "" {
				return ml.ArtifactPaths{}, err
			}
		} else if cfg, err = config.Load(path); err != nil {
			return ml.ArtifactPaths{}, err
		}
	}

	paths := ml.ArtifactPaths{
		ModelType:  cfg.ML.ModelType,
		ModelPath:  cfg.ML.ModelPath,
		SchemaPath: cfg.ML.SchemaPath,
	}
	if modelType != "" {
		paths.ModelType = modelType
	}
	if modelPath != "" {
		paths.ModelPath = modelPath
	}
	if schemaPath != "" {
		paths.SchemaPath = schemaPath
	}
	return paths, nil
}
