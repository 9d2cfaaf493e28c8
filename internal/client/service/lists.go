package service

import "github.com/atinyakov/CTFClient/internal/models"

// The helpers below build list updaters for query.Patch. They never modify
// the slice they are given, so a snapshot can still restore it.

// RemoveByID drops the element with the given id.
func RemoveByID[T models.Identified](id int64) func([]T) []T {
	return func(old []T) []T {
		out := make([]T, 0, len(old))
		for _, v := range old {
			if v.Identity() != id {
				out = append(out, v)
			}
		}
		return out
	}
}

// MapByID applies fn to the element with the given id.
func MapByID[T models.Identified](id int64, fn func(T) T) func([]T) []T {
	return func(old []T) []T {
		out := make([]T, len(old))
		for i, v := range old {
			if v.Identity() == id {
				v = fn(v)
			}
			out[i] = v
		}
		return out
	}
}

// ReplaceByID swaps in the server's copy of an element.
func ReplaceByID[T models.Identified](v T) func([]T) []T {
	return MapByID(v.Identity(), func(T) T { return v })
}
