package manifold

// featureRows materializes every object's feature vector.
func featureRows(f FeatureCallback, n int) [][]float64 {
	dim := f.Dimension()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, dim)
		f.Feature(i, rows[i])
	}
	return rows
}

// meanVector computes the per-dimension mean of the rows.
func meanVector(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	mean := make([]float64, len(rows[0]))
	for _, r := range rows {
		for j, v := range r {
			mean[j] += v
		}
	}
	inv := 1 / float64(len(rows))
	for j := range mean {
		mean[j] *= inv
	}
	return mean
}

// centeredRows returns a centered copy of the rows.
func centeredRows(rows [][]float64, mean []float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		c := make([]float64, len(r))
		for j, v := range r {
			c[j] = v - mean[j]
		}
		out[i] = c
	}
	return out
}

// columnsOf transposes row-major data into column slices.
func columnsOf(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	n, dim := len(rows), len(rows[0])
	cols := make([][]float64, dim)
	for j := 0; j < dim; j++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = rows[i][j]
		}
		cols[j] = col
	}
	return cols
}
