package tasks

import (
	"math/rand"
	"sync"

	"github.com/funvibe/simstream/internal/evaluator"
)

// The predefined mazes are generated once from a fixed seed, so every
// simulation run sees the same ten layouts.
const (
	mazeGridSize = 7
	mazeCount    = 10
	mazeSeed     = 42
)

type maze struct {
	grid      [][]int // 1 = wall, 0 = open; indexed [y][x]
	start     [2]int
	goal      [2]int
	obstacles [][2]int
}

var (
	mazesOnce       sync.Once
	predefinedMazes []maze
)

func mazes() []maze {
	mazesOnce.Do(func() {
		rng := rand.New(rand.NewSource(mazeSeed))
		for i := 0; i < mazeCount; i++ {
			predefinedMazes = append(predefinedMazes, generateModeratelyOpenMaze(rng, mazeGridSize, mazeGridSize, 0.1))
		}
	})
	return predefinedMazes
}

// MazeBuiltins returns the accessors over the predefined mazes.
func MazeBuiltins() map[string]evaluator.Object {
	indexFn := func(name string, fn func(m maze) evaluator.Object) *evaluator.Builtin {
		return &evaluator.Builtin{Name: name, Params: []string{"index"}, Fn: func(e *evaluator.Evaluator, args ...evaluator.Object) evaluator.Object {
			if len(args) != 1 {
				return &evaluator.Error{Kind: evaluator.CallError, Message: name + "() takes exactly one argument"}
			}
			idx, ok := args[0].(*evaluator.Integer)
			if !ok {
				return typeError(name, "index", args[0])
			}
			all := mazes()
			if idx.Value < 0 || idx.Value >= int64(len(all)) {
				return &evaluator.Error{Kind: evaluator.BadOperand, Message: name + "() index out of range"}
			}
			return fn(all[idx.Value])
		}}
	}

	return map[string]evaluator.Object{
		"get_maze_obstacles": indexFn("get_maze_obstacles", func(m maze) evaluator.Object {
			elements := make([]evaluator.Object, len(m.obstacles))
			for i, o := range m.obstacles {
				elements[i] = cell(int64(o[0]), int64(o[1]))
			}
			return &evaluator.List{Elements: elements}
		}),
		"get_maze_start_x": indexFn("get_maze_start_x", func(m maze) evaluator.Object {
			return &evaluator.Integer{Value: int64(m.start[0])}
		}),
		"get_maze_start_y": indexFn("get_maze_start_y", func(m maze) evaluator.Object {
			return &evaluator.Integer{Value: int64(m.start[1])}
		}),
		"get_maze_goal_position": indexFn("get_maze_goal_position", func(m maze) evaluator.Object {
			return cell(int64(m.goal[0]), int64(m.goal[1]))
		}),
		"get_maze_goal_position_x": indexFn("get_maze_goal_position_x", func(m maze) evaluator.Object {
			return &evaluator.Integer{Value: int64(m.goal[0])}
		}),
		"get_maze_goal_position_y": indexFn("get_maze_goal_position_y", func(m maze) evaluator.Object {
			return &evaluator.Integer{Value: int64(m.goal[1])}
		}),
	}
}

// generateMaze carves a depth-first maze. The start is the upper-left
// open cell with its right, lower and diagonal neighbours opened; the
// goal is the open cell furthest from the start by manhattan distance.
func generateMaze(rng *rand.Rand, width, height int) maze {
	grid := make([][]int, height)
	for y := range grid {
		grid[y] = make([]int, width)
		for x := range grid[y] {
			grid[y][x] = 1
		}
	}

	start := [2]int{1, 1}
	grid[1][1] = 0
	grid[1][2] = 0
	grid[2][1] = 0
	grid[2][2] = 0

	stack := [][2]int{start, {2, 1}, {1, 2}, {2, 2}}
	directions := [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

	for len(stack) > 0 {
		x, y := stack[len(stack)-1][0], stack[len(stack)-1][1]

		var neighbors [][2]int
		for _, d := range directions {
			nx, ny := x+d[0]*2, y+d[1]*2
			if nx >= 1 && nx < width-1 && ny >= 1 && ny < height-1 && grid[ny][nx] == 1 {
				neighbors = append(neighbors, [2]int{nx, ny})
			}
		}

		if len(neighbors) > 0 {
			next := neighbors[rng.Intn(len(neighbors))]
			nx, ny := next[0], next[1]
			grid[y+(ny-y)/2][x+(nx-x)/2] = 0
			grid[ny][nx] = 0
			stack = append(stack, next)
		} else {
			stack = stack[:len(stack)-1]
		}
	}

	goal := start
	best := -1
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			if grid[y][x] != 0 || (x == start[0] && y == start[1]) {
				continue
			}
			dist := absInt(x-start[0]) + absInt(y-start[1])
			if dist > best {
				best = dist
				goal = [2]int{x, y}
			}
		}
	}

	return maze{grid: grid, start: start, goal: goal}
}

// generateModeratelyOpenMaze opens an extra fraction of cells after
// carving, then derives the obstacle list.
func generateModeratelyOpenMaze(rng *rand.Rand, width, height int, openFactor float64) maze {
	m := generateMaze(rng, width, height)

	openCells := int(float64(width*height) * openFactor)
	for openCells > 0 {
		x := 1 + rng.Intn(width-2)
		y := 1 + rng.Intn(height-2)
		if m.grid[y][x] == 1 && [2]int{x, y} != m.start && [2]int{x, y} != m.goal {
			m.grid[y][x] = 0
			openCells--
		}
	}

	m.obstacles = mazeObstacles(m.grid)
	return m
}

// mazeObstacles lists the boundary cells once each, then the inner
// walls, in scan order.
func mazeObstacles(grid [][]int) [][2]int {
	height := len(grid)
	width := len(grid[0])

	var obstacles [][2]int
	seen := make(map[[2]int]bool)
	add := func(x, y int) {
		p := [2]int{x, y}
		if !seen[p] {
			seen[p] = true
			obstacles = append(obstacles, p)
		}
	}

	for x := 0; x < width; x++ {
		add(x, 0)
		add(x, height-1)
	}
	for y := 0; y < height; y++ {
		add(0, y)
		add(width-1, y)
	}
	for x := 1; x < width-1; x++ {
		for y := 1; y < height-1; y++ {
			if grid[y][x] == 1 {
				add(x, y)
			}
		}
	}
	return obstacles
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
