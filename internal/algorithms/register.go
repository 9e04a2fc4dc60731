package algorithms

// Register binds the constructor of a concrete algorithm type to name.
// Every Create(name) calls newAlgorithm for a fresh instance.
func Register[T Algorithm](r *Registry, name string, newAlgorithm func() T) {
	r.RegisterFactoryFunction(name, func() Algorithm {
		return newAlgorithm()
	})
}
