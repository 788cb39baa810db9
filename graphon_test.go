package graphon

import "testing"

func TestInsertDataAndSelect(t *testing.T) {
	db := Open(DefaultConfig())
	defer db.Close()

	if err := db.Update(`
		PREFIX ex: <http://example.org/>
		INSERT DATA { ex:tom a ex:Cat . }
	`); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	result, err := db.Query(`
		PREFIX ex: <http://example.org/>
		SELECT ?type WHERE { ex:tom a ?type }
	`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.Select == nil || len(result.Select.Rows) != 1 {
		t.Fatalf("expected exactly one row, got %+v", result.Select)
	}
}

func TestInferMaterializesSubClassOf(t *testing.T) {
	db := Open(DefaultConfig())
	defer db.Close()

	if err := db.Update(`
		PREFIX ex: <http://example.org/>
		PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
		INSERT DATA {
			ex:Cat rdfs:subClassOf ex:Mammal .
			ex:Mammal rdfs:subClassOf ex:Animal .
			ex:tom a ex:Cat .
		}
	`); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if _, err := db.Infer(true); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	result, err := db.Query(`
		PREFIX ex: <http://example.org/>
		SELECT ?type WHERE { ex:tom a ?type }
	`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	types := make(map[string]bool)
	for _, row := range result.Select.Rows {
		types[row["type"].String()] = true
	}
	for _, want := range []string{"<http://example.org/Cat>", "<http://example.org/Mammal>", "<http://example.org/Animal>"} {
		if !types[want] {
			t.Errorf("expected tom to be typed %s after materialization, got %v", want, types)
		}
	}
}

func TestDeleteWhere(t *testing.T) {
	db := Open(DefaultConfig())
	defer db.Close()

	if err := db.Update(`
		PREFIX ex: <http://example.org/>
		INSERT DATA { ex:a ex:knows ex:b . ex:a ex:knows ex:c . }
	`); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := db.Update(`
		PREFIX ex: <http://example.org/>
		DELETE WHERE { ex:a ex:knows ?x }
	`); err != nil {
		t.Fatalf("DeleteWhere failed: %v", err)
	}

	result, err := db.Query(`
		PREFIX ex: <http://example.org/>
		SELECT ?x WHERE { ex:a ex:knows ?x }
	`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.Select.Rows) != 0 {
		t.Errorf("expected no remaining ex:a ex:knows triples, got %d", len(result.Select.Rows))
	}
}

func TestAskQuery(t *testing.T) {
	db := Open(DefaultConfig())
	defer db.Close()

	if err := db.Update(`
		PREFIX ex: <http://example.org/>
		INSERT DATA { ex:a ex:knows ex:b . }
	`); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := db.Query(`PREFIX ex: <http://example.org/> ASK { ex:a ex:knows ex:b }`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.Ask == nil || !result.Ask.Result {
		t.Errorf("expected ASK to return true")
	}
}
