// Package config loads the sitepack project file.
//
// A project is described by sitepack.json (or sitepack.yaml) at its root:
//
//	{
//	  "source": "app",
//	  "entry": "app/assets/scripts/scripts.js",
//	  "styles": {
//	    "transforms": ["import", "simple-vars", "nested", "mixins", "autoprefixer"]
//	  },
//	  "dev": {
//	    "output": "app",
//	    "filename": "bundled.js",
//	    "host": "localhost",
//	    "port": 8080,
//	    "watch": ["app/**/*.html"]
//	  },
//	  "build": {
//	    "output": "doc",
//	    "filename": "[name].[hash].js",
//	    "images": "app/assets/images",
//	    "imagesOut": "assets/images"
//	  }
//	}
//
// Every field is optional. Missing fields take the values returned by New,
// which match the conventional layout above. A project without any project
// file builds with those defaults.
//
// Relative paths are resolved against the directory holding the project file.
package config
