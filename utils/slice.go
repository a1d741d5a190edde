package utils

import "sort"

// UniqueSorted removes duplicate values and returns the rest in ascending order.
func UniqueSorted(slice []string) []string {
	keys := make(map[string]bool)
	list := []string{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	sort.Strings(list)
	return list
}
