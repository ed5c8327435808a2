package tasks

import (
	"github.com/funvibe/simstream/internal/evaluator"
)

// GridBuiltins returns the grid-world constructors. tile_map draws from
// the registry's seeded RNG, so worlds are reproducible per seed.
func GridBuiltins(registry *evaluator.Registry) map[string]evaluator.Object {
	return map[string]evaluator.Object{
		"tile_map": &evaluator.Builtin{
			Name:   "tile_map",
			Params: []string{"the_grid_size"},
			Fn: func(e *evaluator.Evaluator, args ...evaluator.Object) evaluator.Object {
				size := int64(5)
				if len(args) > 0 {
					n, ok := args[0].(*evaluator.Integer)
					if !ok {
						return typeError("tile_map", "the_grid_size", args[0])
					}
					size = n.Value
				}
				return tileMap(registry, size)
			},
		},
		"object_map": &evaluator.Builtin{
			Name:   "object_map",
			Params: []string{"the_grid_size", "index"},
			Fn: func(e *evaluator.Evaluator, args ...evaluator.Object) evaluator.Object {
				size, index := int64(5), int64(0)
				if len(args) > 0 {
					n, ok := args[0].(*evaluator.Integer)
					if !ok {
						return typeError("object_map", "the_grid_size", args[0])
					}
					size = n.Value
				}
				if len(args) > 1 {
					n, ok := args[1].(*evaluator.Integer)
					if !ok {
						return typeError("object_map", "index", args[1])
					}
					index = n.Value
				}
				return objectMap(size, index)
			},
		},
	}
}

func typeError(fn, arg string, got evaluator.Object) evaluator.Object {
	return &evaluator.Error{
		Kind:    evaluator.BadOperand,
		Message: fn + "() " + arg + " must be an integer, not " + evaluator.TypeName(got),
	}
}

func cell(x, y int64) *evaluator.Tuple {
	return &evaluator.Tuple{Elements: []evaluator.Object{
		&evaluator.Integer{Value: x},
		&evaluator.Integer{Value: y},
	}}
}

// tileMap builds a bordered grid: the outer ring is wall, inner tiles
// are road with probability 0.8.
func tileMap(registry *evaluator.Registry, size int64) evaluator.Object {
	tiles := evaluator.NewMap()
	for x := int64(-1); x <= size; x++ {
		for y := int64(-1); y <= size; y++ {
			kind := "road"
			if x == -1 || x == size || y == -1 || y == size {
				kind = "wall"
			} else if registry.Rand().Float64() <= 0.2 {
				kind = "wall"
			}
			tiles.Set(cell(x, y), &evaluator.Str{Value: kind})
		}
	}
	return tiles
}

// Key spawn points are chosen by scenario index (0-9; any other index is
// an error); the chest is fixed.
var (
	keySpawnX = []int64{4, 1, 4, 0, 4, 3, 3, 1, 3, 2}
	keySpawnY = []int64{1, 3, 3, 4, 1, 0, 3, 3, 1, 4}
)

func objectMap(size, index int64) evaluator.Object {
	objects := evaluator.NewMap()
	for x := int64(0); x < size; x++ {
		for y := int64(0); y < size; y++ {
			objects.Set(cell(x, y), &evaluator.Str{Value: "empty"})
		}
	}
	if index < 0 || index >= int64(len(keySpawnX)) {
		return &evaluator.Error{Kind: evaluator.BadOperand, Message: "object_map() index out of range"}
	}
	objects.Set(cell(keySpawnX[index], keySpawnY[index]), &evaluator.Str{Value: "key"})
	objects.Set(cell(2, 3), &evaluator.Str{Value: "chest"})
	return objects
}
