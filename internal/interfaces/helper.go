package interfaces

// MapValues 任意map的值收集为切片（顺序不保证，调用方需要时自行排序）
func MapValues[K comparable, V any](m map[K]V) []V {
	res := make([]V, 0, len(m))
	for _, v := range m {
		res = append(res, v)
	}
	return res
}
