package main

// Seeds a running server with a handful of study materials so the discover
// and top-picks feeds have something to show during local development.
//
//   go run scripts/seed_study_materials.go -base http://localhost:5000

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
)

type seedItem struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type seedMaterial struct {
	Title     string     `json:"title"`
	Tags      []string   `json:"tags"`
	CreatedBy string     `json:"created_by"`
	Items     []seedItem `json:"items"`
}

var seeds = []seedMaterial{
	{
		Title:     "Cell Biology Basics",
		Tags:      []string{"biology", "cells"},
		CreatedBy: "seed-user-1",
		Items: []seedItem{
			{Term: "mitochondria", Definition: "organelle that produces ATP"},
			{Term: "ribosome", Definition: "site of protein synthesis"},
			{Term: "nucleus", Definition: "contains the cell's genome"},
		},
	},
	{
		Title:     "Intro to Astronomy",
		Tags:      []string{"astronomy", "space"},
		CreatedBy: "seed-user-2",
		Items: []seedItem{
			{Term: "light year", Definition: "distance light travels in one year"},
			{Term: "nebula", Definition: "cloud of gas and dust in space"},
		},
	},
	{
		Title:     "World War II Timeline",
		Tags:      []string{"history", "war"},
		CreatedBy: "seed-user-2",
		Items: []seedItem{
			{Term: "1939", Definition: "year the war began in Europe"},
			{Term: "1945", Definition: "year the war ended"},
		},
	},
}

func main() {
	base := flag.String("base", "http://localhost:5000", "server base URL")
	flag.Parse()

	for _, seed := range seeds {
		body, err := json.Marshal(seed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal %q: %v\n", seed.Title, err)
			os.Exit(1)
		}
		resp, err := http.Post(*base+"/study-material/save", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "save %q: %v\n", seed.Title, err)
			os.Exit(1)
		}
		var saved struct {
			StudyMaterialID string `json:"studyMaterialId"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
			fmt.Fprintf(os.Stderr, "decode response for %q: %v\n", seed.Title, err)
			os.Exit(1)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "save %q: status %d\n", seed.Title, resp.StatusCode)
			os.Exit(1)
		}
		fmt.Printf("seeded %q as %s\n", seed.Title, saved.StudyMaterialID)
	}
}
