package reactor

import (
	"fmt"
)

func ExampleCell() {
	count := NewCell(0)
	fmt.Println(count.Current())

	count.Set(10)
	fmt.Println(count.Current())

	// Output:
	// 0
	// 10
}

func ExampleFormula() {
	count := NewCell(1)
	double := NewFormula(func() (int, error) {
		fmt.Println("doubling")
		return count.Current() * 2, nil
	})

	fmt.Println(double.Current())
	fmt.Println(double.Current())

	count.Set(1)
	fmt.Println(double.Current())

	count.Set(5)
	fmt.Println(double.Current())

	// Output:
	// doubling
	// 2
	// 2
	// 2
	// doubling
	// 10
}

func ExampleResource() {
	count := NewCell(1)
	conn := NewResource(func(s *ResourceScope) (string, error) {
		n := count.Current()
		fmt.Printf("connect %d\n", n)

		s.OnCleanup(func() error {
			fmt.Printf("disconnect %d\n", n)
			return nil
		})

		return fmt.Sprintf("conn-%d", n), nil
	})

	fmt.Println(conn.Current())

	count.Set(2)
	fmt.Println(conn.Current())

	conn.Finalize()

	// Output:
	// connect 1
	// conn-1
	// disconnect 1
	// connect 2
	// conn-2
	// disconnect 2
}

func ExampleSubscribe() {
	count := NewCell(1)
	label := NewFormula(func() (string, error) {
		return fmt.Sprintf("count is %d", count.Current()), nil
	})

	var sub *Subscription[string]
	sub, _ = Subscribe(label, func() {
		v, changed, _ := sub.Poll()
		fmt.Println(v, changed)
	})

	count.Set(2)
	count.Set(3)
	Flush()

	// Output:
	// count is 3 true
}

func ExampleLink() {
	app := NewMarker(Describe("app"))
	db := NewMarker(Describe("db"))
	Link(app, db)

	OnFinalize(app, func() error {
		fmt.Println("closing app")
		return nil
	})
	OnFinalize(db, func() error {
		fmt.Println("closing db")
		return nil
	})

	Finalize(app)
	Finalize(app)

	// Output:
	// closing app
	// closing db
}
