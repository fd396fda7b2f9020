// Package planner maps each source file to a destination bucket and name.
//
// A bucket is a logical output directory: a type folder such as "txt", the
// unsorted-images folder, or a dated event folder such as "2021/3" or
// "2021/06/3". Shard 1 of a bucket is the directory itself; when it holds
// the configured maximum, files spill into siblings "<bucket>-2",
// "<bucket>-3", and so on. Each bucket is indexed from disk on first use, so
// counts and names carry over from earlier runs.
package planner
