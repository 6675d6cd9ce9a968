package ai

// ExtractPrompt expects the artifact text as its only argument.
const ExtractPrompt = `
# Task Context
You are an advanced code analyzer specialized in extracting APIs, endpoints, database interactions, tables and queries from source code.
The provided code usually contains UI components, charts and data processing logic.

# Detailed Task Description & Rules
Extract only the following elements, and only when they are explicitly present in the code:
- **APIs**: external or internal APIs used through fetch(), axios or any other HTTP request library.
- **Endpoints**: the specific path, HTTP method and parameters of each request.
- **Queries**: SQL or NoSQL queries, ORM interactions or API based query mechanisms.
- **Databases**: database usage such as SQL, NoSQL, Firebase, IndexedDB or other storage solutions.
- **Tables**: tables referenced in queries or API requests, with column names and data types.
  When a query is present, also return the tables it touches. They appear right after the FROM clause.

Never infer or assume APIs, queries or databases that are not written in the code.
Every list must be present in the answer; use an empty list when nothing was found.
Give every element a local id (api_1, endpoint_1, db_1, query_1, table_1) and reference those ids from endpoints and relationships.
For every table, tipos_datos must have one entry per entry in columnas.

# Examples
Code:
` + "```javascript" + `
const API_BASE_URL = "https://api.ordersystem.com";

const OrderTable = () => {
    const [orders, setOrders] = useState([]);
    useEffect(() => {
        fetch(` + "`${API_BASE_URL}/orders`" + `)
            .then(response => response.json())
            .then(data => setOrders(data));
    }, []);
    return <Table>{orders.map(o => <Tr key={o.id}><Td>{o.customer_name}</Td><Td>{o.total}</Td></Tr>)}</Table>;
};
` + "```" + `

Expected output:
{
  "apis": [
    {"id": "api_1", "name": "Order System API", "description": "API for managing customer orders", "base_url": "https://api.ordersystem.com"}
  ],
  "endpoints": [
    {"id": "endpoint_1", "api_id": "api_1", "path": "/orders", "method": "GET", "parameters": [], "description": "Lists customer orders"}
  ],
  "databases": [],
  "queries": [],
  "tables": [],
  "relationships": {"relaciones": [{"origen": "api_1", "destino": "endpoint_1", "tipo": "EXPOSES"}]}
}

A query such as "SELECT region, SUM(total_sales) FROM orders GROUP BY region" yields a query entry with that exact sql_query
and a table entry {"nombre_tabla": "orders", "columnas": ["region", "total_sales"], "tipos_datos": ["VARCHAR", "FLOAT"]}.

# Immediate Task Description or Request
Extract the elements from the following artifact:

%s
`

// BusinessAnalystPrompt expects the extracted entities as JSON.
const BusinessAnalystPrompt = `
# Task Context
You are a business analyst with expertise in software architecture and data management.
You review APIs, endpoints, databases, queries and tables found in a code artifact and explain their relevance to the business.

# Background Data
%s

# Detailed Task Description & Rules
For each entity:
- **Description**: explain its function in the system.
- **Key KPIs**: name the metrics that evaluate its performance or that it helps compute.
- **Statistical Methods**: name analyses that help interpret it.
Reference each entity by the id it has in the background data.
Keep KPI and method names short, for example "Response Time", "Mortality Rate" or "Median".
Only add an insight when the entity supports it; an empty list of insights is a valid answer.

# Output Formatting
Return a JSON object with a single "insights" list.
`

// RelationshipPrompt expects the new nodes, the existing nodes and the
// permitted relationship rules, each as JSON.
const RelationshipPrompt = `
# Task Context
You are an expert knowledge graph analyst. You receive a list of new nodes and a list of nodes already in the graph.
Your task is to determine the relationships between them following the permitted rules.

# Background Data
New nodes:
%s

Existing nodes:
%s

Permitted relationships (source kind, target kind, type):
%s

# Detailed Task Description & Rules
- Only relate nodes that have a real connection in the data. Do not relate nodes by guesswork.
- Check that queries and databases actually refer to each other before relating them.
- Only assign a relationship when the identifiers or context of both nodes match.
- Do not connect nodes coming from unrelated artifacts that share no common element.
- Use the node ids exactly as given. Every relationship must match one permitted rule, including its direction.

# Output Formatting
Return a JSON object:
{"relaciones": [{"origen": "<source node id>", "destino": "<target node id>", "tipo": "<RELATIONSHIP_TYPE>"}]}
`
