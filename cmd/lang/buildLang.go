package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Plural variants live in the source files as suffixed keys
// ("key.one", "key.few"). Everything else lands under "other".
var pluralCategories = []string{"zero", "one", "two", "few", "many"}

func transformJson(input map[string]interface{}) (map[string]interface{}, error) {
	output := make(map[string]interface{})

	entry := func(key string) map[string]interface{} {
		if existing, ok := output[key].(map[string]interface{}); ok {
			return existing
		}
		created := make(map[string]interface{})
		output[key] = created
		return created
	}

	for key, value := range input {
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("value for %q is not a string", key)
		}

		category := "other"
		base := key
		for _, plural := range pluralCategories {
			suffix := "." + plural
			if strings.HasSuffix(key, suffix) {
				base = strings.TrimSuffix(key, suffix)
				category = plural
				break
			}
		}

		entry(base)[category] = text
	}

	return output, nil
}

func main() {
	localiseDir := "internal/i18n/localise"
	outputDir := "internal/i18n/lang"

	// Create output directory if it doesn't exist
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		os.MkdirAll(outputDir, os.ModePerm)
	}

	// Read the localise directory
	langDirs, err := os.ReadDir(localiseDir)
	if err != nil {
		fmt.Println("Error reading localise directory:", err)
		return
	}

	for _, langDir := range langDirs {
		if langDir.IsDir() {
			lang := langDir.Name()
			mergedData := make(map[string]interface{})

			// Read JSON files in the language directory
			files, err := os.ReadDir(filepath.Join(localiseDir, lang))
			if err != nil {
				fmt.Println("Error reading language directory:", err)
				continue
			}

			for _, file := range files {
				if filepath.Ext(file.Name()) == ".json" {
					filePath := filepath.Join(localiseDir, lang, file.Name())
					data, err := os.ReadFile(filePath)
					if err != nil {
						fmt.Println("Error reading file:", err)
						continue
					}

					var jsonData map[string]interface{}
					if err := json.Unmarshal(data, &jsonData); err != nil {
						fmt.Println("Error parsing JSON file:", err)
						continue
					}

					// Merge JSON data
					for key, value := range jsonData {
						mergedData[key] = value
					}
				}
			}

			transformed, err := transformJson(mergedData)
			if err != nil {
				fmt.Println("Error transforming JSON:", err)
				continue
			}

			// Write merged data to output file
			outputFilePath := filepath.Join(outputDir, lang+".json")
			mergedJSON, err := json.MarshalIndent(transformed, "", "  ")
			if err != nil {
				fmt.Println("Error marshalling merged JSON:", err)
				continue
			}

			if err := os.WriteFile(outputFilePath, mergedJSON, 0644); err != nil {
				fmt.Println("Error writing merged JSON to file:", err)
				continue
			}
		}
	}
}
