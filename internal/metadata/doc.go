// Package metadata reads capture timestamps from image files.
//
// ExifReader decodes EXIF (JPEG, TIFF, and TIFF-based raw formats) and
// returns the earliest plausible of DateTimeOriginal, DateTimeDigitized, and
// DateTime. Policy decides plausibility: anything before the configured
// earliest year or after the current time plus a small slack is treated as a
// reset or wrong camera clock and reported as "no timestamp".
package metadata
