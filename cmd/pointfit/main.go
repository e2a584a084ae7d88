package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"pointfit/pkg/config"
	"pointfit/pkg/landmark"
	"pointfit/pkg/pointio"
	"pointfit/pkg/registration"
)

func main() {
	// Parse command line arguments
	movingFile := flag.String("moving", "", "Point file of the set to move (mesh nodes)")
	fixedFile := flag.String("fixed", "", "Point file of the set to align to (data points)")
	problemFile := flag.String("problem", "", "Problem file naming data, nodes and elems; replaces -moving and -fixed")
	configFile := flag.String("config", "pointfit.yaml", "Configuration file")
	variant := flag.String("variant", "", "Registration variant: full, rigid, rigid-scale or anisotropic")
	reverse := flag.Bool("reverse", false, "Measure from fixed points to the moving set")
	twoStage := flag.Bool("two-stage", false, "Solve for translation alone before the full variant")
	matchCentroid := flag.Bool("match-centroid", false, "Pre-align centroids before optimising")
	mirror := flag.Int("mirror", registration.NoMirror, "Mirror the fixed set about axis 0 (yz), 1 (xz) or 2 (xy)")
	mirrorOrigin := flag.Bool("mirror-origin", false, "Mirror about the origin instead of the fixed set's centroid")
	outputFile := flag.String("output", "registered.txt", "Output point file")
	paramsFile := flag.String("params", "", "Write the fitted transform to this YAML file")
	problemOut := flag.String("problem-out", "", "Write a problem file naming the registered nodes")
	previewDir := flag.String("preview-dir", "", "Directory for projection previews")
	landmarksSrc := flag.String("landmarks-src", "", "Source landmark file for an affine landmark fit")
	landmarksDst := flag.String("landmarks-dst", "", "Target landmark file for an affine landmark fit")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this path and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	if *landmarksSrc != "" || *landmarksDst != "" {
		if err := runLandmarks(*landmarksSrc, *landmarksDst, *movingFile, *outputFile, *paramsFile); err != nil {
			log.Fatalf("Landmark fit failed: %v", err)
		}
		return
	}

	// Validate inputs
	if *problemFile == "" && (*movingFile == "" || *fixedFile == "") {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Explicit flags override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "variant":
			cfg.Registration.Variant = *variant
		case "reverse":
			cfg.Registration.Reverse = *reverse
		case "two-stage":
			cfg.Registration.TwoStage = *twoStage
		case "match-centroid":
			cfg.Registration.MatchCentroid = *matchCentroid
		case "preview-dir":
			cfg.Output.PreviewDir = *previewDir
		}
	})

	opts, err := cfg.RegistrationOptions()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	params := &registration.Params{
		ProblemFile:         *problemFile,
		MovingFile:          *movingFile,
		FixedFile:           *fixedFile,
		OutputFile:          *outputFile,
		ParamsFile:          *paramsFile,
		ProblemOutFile:      *problemOut,
		Options:             opts,
		TwoStage:            cfg.Registration.TwoStage,
		MirrorAxis:          *mirror,
		MirrorAboutCentroid: !*mirrorOrigin,
		RowConvention:       cfg.RowConvention(),
		PreviewDir:          cfg.Output.PreviewDir,
		Verbose:             cfg.Output.Verbose,
	}

	fmt.Println("================================")
	fmt.Println("POINTFIT: POINT-SET REGISTRATION")
	fmt.Println("================================")

	registrar := registration.NewRegistrar(params)

	startTime := time.Now()
	if err := registrar.Process(); err != nil {
		log.Fatalf("Registration failed: %v", err)
	}
	processingTime := time.Since(startTime)

	res := registrar.GetResult()
	fmt.Printf("\nRegistration completed in %.2f seconds (%s)\n", processingTime.Seconds(), res.Solver.Status)
	fmt.Printf("Output points saved to: %s\n\n", *outputFile)

	fmt.Printf("Transform (%s):\n", res.Stages)
	fmt.Printf("  %s\n", res.Params)
	fmt.Printf("  vector: %v\n\n", res.Vector())

	fmt.Printf("Fit metrics:\n")
	fmt.Printf("=======================================\n")
	fmt.Printf("Initial RMSE: %.6f\n", res.Metrics.InitialRMSE)
	fmt.Printf("Final RMSE: %.6f\n", res.Metrics.RMSE)
	fmt.Printf("Mean distance: %.6f\n", res.Metrics.MeanDistance)
	fmt.Printf("Max distance: %.6f\n", res.Metrics.MaxDistance)
	fmt.Printf("Improvement: %.2f%%\n", 100*res.Metrics.Improvement())
	fmt.Printf("Solver: %d iterations, %d evaluations\n", res.Solver.Iterations, res.Solver.Evaluations)
}

// landmarkReport is the YAML document written for an affine landmark fit
type landmarkReport struct {
	Matrix   [][]float64 `yaml:"matrix,flow"`
	Residual float64     `yaml:"residual"`
}

func runLandmarks(srcFile, dstFile, movingFile, outputFile, paramsFile string) error {
	if srcFile == "" || dstFile == "" {
		return fmt.Errorf("both -landmarks-src and -landmarks-dst are required")
	}
	src, err := pointio.ReadPoints(srcFile)
	if err != nil {
		return err
	}
	dst, err := pointio.ReadPoints(dstFile)
	if err != nil {
		return err
	}

	m, err := landmark.FitAffine(src, dst)
	if err != nil {
		return err
	}
	residual, err := landmark.Residual(m, src, dst)
	if err != nil {
		return err
	}

	fmt.Printf("Affine transform from %d landmarks (residual %.6g):\n", len(src), residual)
	fmt.Printf("%v\n", mat.Formatted(m, mat.Squeeze()))

	if paramsFile != "" {
		report := landmarkReport{Residual: residual}
		for i := 0; i < 4; i++ {
			report.Matrix = append(report.Matrix, mat.Row(nil, i, m))
		}
		data, err := yaml.Marshal(&report)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(paramsFile), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(paramsFile, data, 0644); err != nil {
			return err
		}
		fmt.Printf("Transform written to %s\n", paramsFile)
	}

	if movingFile != "" {
		moving, err := pointio.ReadPoints(movingFile)
		if err != nil {
			return err
		}
		if err := pointio.WritePoints(outputFile, landmark.Apply(m, moving)); err != nil {
			return err
		}
		fmt.Printf("Transformed points saved to: %s\n", outputFile)
	}
	return nil
}
