// Package errors provides structured, actionable error messages for sitepack.
//
// Every failure that leaves one of sitepack's own packages is an *Error carrying a
// registered code, a category, a short message and, where it helps, a detail
// line and a hint:
//
//	err := errors.New("E110").
//	    WithDetail("open app: no such file or directory").
//	    WithSuggestion("Create the page directory or set \"source\" in sitepack.json")
//
//	fmt.Print(err.Format())
//	// Output:
//	// ERROR E110: Page directory could not be read
//	//
//	//   open app: no such file or directory
//	//
//	//   Hint: Create the page directory or set "source" in sitepack.json
//
// # Error Codes
//
//   - E100-E109: project configuration
//   - E110-E119: configuration assembly
//   - E120-E129: bundling
//   - E130-E139: development server
//   - E140-E149: deployment
//
// *Error implements Unwrap, so errors.Is and errors.As from the standard
// library see through it to the wrapped cause.
package errors
