package tasks

import (
	"testing"

	"github.com/funvibe/simstream/internal/evaluator"
)

func evalWithTasks(t *testing.T, seed int64, input string) evaluator.Object {
	t.Helper()
	registry := evaluator.NewRegistry(seed)
	Install(registry, "")
	e := evaluator.New(registry)
	obj, err := e.Eval(input)
	if err != nil {
		t.Fatalf("Eval(%q): %v", input, err)
	}
	return obj
}

func TestTileMapShapeAndBorder(t *testing.T) {
	obj := evalWithTasks(t, 42, "tile_map(5)")
	tiles, ok := obj.(*evaluator.Map)
	if !ok {
		t.Fatalf("tile_map returned %T", obj)
	}
	if tiles.Len() != 7*7 {
		t.Fatalf("tile count = %d, want 49 for a bordered 5x5 grid", tiles.Len())
	}

	at := func(x, y int64) string {
		key := &evaluator.Tuple{Elements: []evaluator.Object{
			&evaluator.Integer{Value: x}, &evaluator.Integer{Value: y},
		}}
		v, ok := tiles.Get(key)
		if !ok {
			t.Fatalf("missing tile (%d, %d)", x, y)
		}
		return evaluator.StrValue(v)
	}

	for i := int64(-1); i <= 5; i++ {
		for _, pos := range [][2]int64{{-1, i}, {5, i}, {i, -1}, {i, 5}} {
			if at(pos[0], pos[1]) != "wall" {
				t.Errorf("border tile (%d, %d) = %s, want wall", pos[0], pos[1], at(pos[0], pos[1]))
			}
		}
	}

	inner := at(2, 2)
	if inner != "road" && inner != "wall" {
		t.Errorf("inner tile = %s", inner)
	}
}

func TestTileMapDeterministicPerSeed(t *testing.T) {
	a := evalWithTasks(t, 7, "tile_map(5)")
	b := evalWithTasks(t, 7, "tile_map(5)")
	if !evaluator.ObjectsEqual(a, b) {
		t.Error("same seed produced different tile maps")
	}
}

func TestObjectMapPlacements(t *testing.T) {
	obj := evalWithTasks(t, 1, "object_map(5, 2)")
	objects := obj.(*evaluator.Map)

	key := func(x, y int64) *evaluator.Tuple {
		return &evaluator.Tuple{Elements: []evaluator.Object{
			&evaluator.Integer{Value: x}, &evaluator.Integer{Value: y},
		}}
	}

	if v, _ := objects.Get(key(4, 3)); evaluator.StrValue(v) != "key" {
		t.Errorf("index 2 key position = %v", v)
	}
	if v, _ := objects.Get(key(2, 3)); evaluator.StrValue(v) != "chest" {
		t.Errorf("chest position = %v", v)
	}

	empties := 0
	for _, pair := range objects.Pairs() {
		if evaluator.StrValue(pair.Value) == "empty" {
			empties++
		}
	}
	if empties != 23 {
		t.Errorf("empty tiles = %d, want 23 of 25", empties)
	}
}

func TestObjectMapKwargs(t *testing.T) {
	obj := evalWithTasks(t, 1, "object_map(5, index=0)")
	objects := obj.(*evaluator.Map)
	key := &evaluator.Tuple{Elements: []evaluator.Object{
		&evaluator.Integer{Value: 4}, &evaluator.Integer{Value: 1},
	}}
	if v, _ := objects.Get(key); evaluator.StrValue(v) != "key" {
		t.Errorf("index 0 key position = %v", v)
	}
}

func TestMazeAccessorsAreStable(t *testing.T) {
	first := evalWithTasks(t, 1, "get_maze_obstacles(0)")
	second := evalWithTasks(t, 99, "get_maze_obstacles(0)")
	if !evaluator.ObjectsEqual(first, second) {
		t.Error("predefined mazes must not depend on the registry seed")
	}

	obstacles := first.(*evaluator.List)
	if len(obstacles.Elements) == 0 {
		t.Fatal("maze has no obstacles")
	}

	// Start and goal are open and inside the grid.
	sx := evalWithTasks(t, 1, "get_maze_start_x(0)").(*evaluator.Integer).Value
	sy := evalWithTasks(t, 1, "get_maze_start_y(0)").(*evaluator.Integer).Value
	if sx != 1 || sy != 1 {
		t.Errorf("start = (%d, %d), want (1, 1)", sx, sy)
	}

	goal := evalWithTasks(t, 1, "get_maze_goal_position(3)").(*evaluator.Tuple)
	gx := goal.Elements[0].(*evaluator.Integer).Value
	gy := goal.Elements[1].(*evaluator.Integer).Value
	if gx < 1 || gx > 5 || gy < 1 || gy > 5 {
		t.Errorf("goal = (%d, %d) outside the open interior", gx, gy)
	}
	if evalWithTasks(t, 1, "get_maze_goal_position_x(3)").(*evaluator.Integer).Value != gx {
		t.Error("goal x accessor disagrees with the position accessor")
	}

	start := [2]int64{sx, sy}
	for _, el := range obstacles.Elements {
		pos := el.(*evaluator.Tuple)
		x := pos.Elements[0].(*evaluator.Integer).Value
		y := pos.Elements[1].(*evaluator.Integer).Value
		if [2]int64{x, y} == start {
			t.Fatalf("start cell (%d, %d) is an obstacle", x, y)
		}
	}
}

func TestMazeIndexOutOfRange(t *testing.T) {
	registry := evaluator.NewRegistry(1)
	Install(registry, "")
	e := evaluator.New(registry)
	if _, err := e.Eval("get_maze_obstacles(99)"); err == nil {
		t.Error("index 99 must fail")
	}
}

func TestTaskPackRegistration(t *testing.T) {
	Register("test_task", func(r *evaluator.Registry) {
		r.Register("custom_fn", &evaluator.Builtin{
			Name: "custom_fn",
			Fn: func(e *evaluator.Evaluator, args ...evaluator.Object) evaluator.Object {
				return &evaluator.Integer{Value: 41}
			},
		})
	})

	registry := evaluator.NewRegistry(1)
	Install(registry, "test_task")
	e := evaluator.New(registry)
	obj, err := e.Eval("custom_fn() + 1")
	if err != nil {
		t.Fatal(err)
	}
	if obj.Inspect() != "42" {
		t.Errorf("custom_fn() + 1 = %s", obj.Inspect())
	}

	// Other tasks do not see the pack.
	other := evaluator.NewRegistry(1)
	Install(other, "different")
	if _, ok := other.Lookup("custom_fn"); ok {
		t.Error("pack leaked across task keys")
	}
}
