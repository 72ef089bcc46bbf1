// Package mediatypes classifies image files by extension and expands
// directory inputs into the image files they contain.
//
// # File Types
//
//	mediatypes.FileTypeImage            // decodable (jpg, png, gif, bmp, webp, tiff)
//	mediatypes.FileTypeUnsupportedImage // recognised but not decodable (heic, svg, ...)
//	mediatypes.FileTypeOther            // anything else
//
// GetFileType and GetMimeType accept either a bare extension or a file
// name and match case-insensitively.
//
// # Expanding Inputs
//
// ExpandInputs replaces every directory in a list of inputs with the
// images inside it. Plain files, including ones that no longer exist, are
// passed through so that batch accounting can report them:
//
//	paths, err := mediatypes.ExpandInputs(ctx, args, mediatypes.ExpandOptions{Recursive: true})
package mediatypes
