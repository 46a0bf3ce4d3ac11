// Package build compiles an assembled configuration with esbuild.
//
// A Runner translates a *pack.Config into esbuild options, applies the
// configuration's plugins and fires their hooks around every compilation:
// start hooks before esbuild runs, done hooks after a compilation that
// finished without errors.
//
// # Usage
//
//	runner, err := build.New(cfg, build.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//	result, err := runner.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Built %d files in %s\n", len(result.Stats.Files), result.Duration)
//
// # Output Structure
//
// A production build writes hashed bundles, the rendered pages, the copied
// images and a manifest into the publish directory:
//
//	doc/
//	├── index.html
//	├── scripts.1A2B3C4D.js
//	├── scripts.5E6F7A8B.css
//	├── chunk.9C0D1E2F.js
//	├── assets/images/
//	└── manifest.json
//
// # Manifest
//
// The manifest maps entry names to their hashed files:
//
//	{
//	  "scripts.js": "scripts.1A2B3C4D.js",
//	  "scripts.css": "scripts.5E6F7A8B.css"
//	}
package build
